// Package pipeline runs every route handler inside the per-request state
// machine.
//
// # States
//
//	ARRIVED -> CORS_CHECKED -> VALIDATED -> AUTHENTICATED_CONTEXT -> HANDLED -> SERIALIZED -> COMPLETED
//
// ERRORED is reachable from every state before COMPLETED. CORS headers are
// applied by the cors middleware before the pipeline runs, so CORS_CHECKED
// always succeeds. Identity extraction never fails. Validation, handler and
// serialization failures move the request to ERRORED, which renders the
// uniform error envelope.
//
// # Events
//
// Each request publishes request.received on arrival and exactly one of
// response.sent (COMPLETED) or request.failed (ERRORED). The pipeline does not
// decide where events go; sinks subscribe to the events bus.
//
// # Routes
//
// Routes declare their contracts by schema name. Names are resolved against
// the schema registry when the route is registered, so an unknown schema
// aborts startup instead of failing on the first request:
//
//	p.Register(r, pipeline.Route{
//	    Method:   http.MethodPost,
//	    Path:     "/api/v1/carts/{cartId}/items",
//	    Request:  "cart.item.add",
//	    Response: "cart.view",
//	    Status:   http.StatusCreated,
//	    Handler:  addItem,
//	})
package pipeline
