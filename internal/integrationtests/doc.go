// Package integrationtests runs whole node trees through the app: loading,
// building, scheduling and evaluation together.
package integrationtests
