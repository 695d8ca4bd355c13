/*
Package transport carries JS9 commands to the connect.js helper and brings
replies back. It has two interchangeable backends behind the Transport
interface: HTTP, which POSTs each command to the helper's /msg endpoint and
reads the reply from the response body, and Socket, which keeps one
WebSocket connection open and multiplexes every call over it.

The HTTP backend is stateless--each call is its own request, so there is
nothing to reconnect and nothing to share between goroutines. The helper
cannot advertise its operations over it, so Ops returns nil there.

The Socket protocol proceeds as follows:

1. The client opens a WebSocket connection to the helper's /msg endpoint.
2. The helper greets it with a message listing the operations the connected page supports.
3. The client sends commands tagged with a fresh correlation id, without waiting for earlier replies.
4. The helper answers each command with a message echoing its correlation id, in whatever order the page finishes them.

Replies are routed back to their callers by correlation id, so calls from
many goroutines interleave on the one connection. A call whose context
expires abandons its correlation id; if the reply arrives later it is
discarded. When the connection drops, every call still in flight fails
with a ConnectionError, and later calls fail fast unless redialing was
enabled when the transport was built.

Neither backend retries anything on its own: one call is one exchange with
the helper, and any failure surfaces to the caller as a ConnectionError or
a TimeoutError.
*/
package transport
