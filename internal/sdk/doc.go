// Package sdk loads third-party playback SDKs into the host page exactly once.
//
// # Loader
//
// [Loader.EnsureLoaded] is idempotent per SDK [Key]. The first caller injects the script and
// composes a hook onto the SDK's documented global-ready callback. Concurrent callers wait on
// the same in-flight load. When a script tag for the SDK URL is already present (left by an
// earlier page component), the loader does not inject again and only composes onto the callback.
//
// # Globals
//
// [Globals] is the process-wide registry of global-ready callbacks. Callbacks are composed,
// never overwritten, so multiple loaders and controllers on the same page each get notified.
//
// The loader depends only on the [Document] interface. The websocket bridge implements it
// against the real page.
package sdk
