// Package shared holds cross-cutting helpers that belong to no single
// domain package.
//
// The testutil subpackage provides the in-memory slog recorder used to
// assert on component logging, and the canonical survey extract fixture
// shared by integration and end-to-end tests.
package shared
