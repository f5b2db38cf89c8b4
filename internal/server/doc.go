// Package server provides HTTP routing, middleware, and the two OAuth endpoints the browser talks
// to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns on an [http.ServeMux].
//
// # OAuth Callback Page
//
// [CallbackHandler] serves the redirect target of the authorization popup. The page it renders
// reads code, state and error from its own URL, posts them to window.opener scoped to the app
// origin, and closes itself. Without an opener it shows a terminal error; the flow cannot recover.
//
// # Token Exchange Proxy
//
// [TokenProxy] is the trusted side of the code exchange. The browser never holds the client
// secret: it posts {action, code, redirect_uri} or {action, refresh_token} here and the proxy
// talks to the accounts service. Non-2xx responses carry {error, details}.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
