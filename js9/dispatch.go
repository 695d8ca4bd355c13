package js9

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gojs9/gojs9/fits"
	"github.com/gojs9/gojs9/js9/transport"
	"github.com/gojs9/gojs9/pixel"
	"github.com/gojs9/gojs9/wire"
)

// Invoke dispatches one operation. It is the chokepoint every wrapper goes
// through: unknown operations fail before anything touches the network,
// payload arguments are encoded through the codec, the helper's in-band
// error convention is translated, and every failure after the registry
// lookup comes back as a CallError wrapping the underlying kind.
//
// Calls are never retried here; callers that want retries bring their own
// loop.
func (c *Client) Invoke(ctx context.Context, op string, args ...any) (Result, error) {
	desc, ok := c.reg.lookup(op)
	if !ok {
		return Result{}, &UnknownOperationError{Op: op}
	}
	if desc.MaxArgs > 0 && len(args) > desc.MaxArgs {
		return Result{}, &CallError{Op: op, Err: fmt.Errorf("too many arguments: at most %d, got %d", desc.MaxArgs, len(args))}
	}

	wireArgs, err := flattenArgs(&desc, args)
	if err != nil {
		return Result{}, &CallError{Op: op, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, &CallError{Op: op, Err: err}
		}
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	c.log.Debugw("sending command", "Cmd", op, "NumArgs", len(wireArgs))
	raw, err := c.transport.Call(ctx, c.command(op, wireArgs))
	if err != nil {
		return Result{}, &CallError{Op: op, Err: err}
	}

	if msg, ok := remoteError(raw); ok {
		return Result{}, &CallError{Op: op, Err: &RemoteError{Op: op, Message: msg}}
	}
	return newResult(raw), nil
}

func (c *Client) command(op string, args []any) *transport.Command {
	return &transport.Command{
		Cmd:    op,
		Args:   args,
		ID:     c.displayID,
		Multi:  c.multi,
		PageID: c.pageID,
	}
}

// alive sends the liveness check: a command with routing fields only.
func (c *Client) alive(ctx context.Context) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	raw, err := c.transport.Alive(ctx, c.command("", nil))
	if err != nil {
		return "", err
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, nil
	}
	return string(raw), nil
}

// callCtx applies the client's default timeout unless the caller brought a
// deadline of their own.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// remoteError detects the helper's failure convention: a string reply
// containing "ERROR:".
func remoteError(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	if !strings.Contains(s, "ERROR:") {
		return "", false
	}
	return s, true
}

// flattenArgs turns Go arguments into the wire's positional form. Pixel
// buffers and FITS documents are encoded when the operation takes
// payloads; everything else is sent as the JSON it marshals to.
func flattenArgs(desc *Descriptor, args []any) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *pixel.Buffer:
			if desc.Payload != PayloadSend {
				return nil, fmt.Errorf("argument %d: %s does not take an image payload", i, desc.Name)
			}
			env, err := wire.EncodeImage(v, nil)
			if err != nil {
				return nil, err
			}
			out[i] = env
		case *fits.Document:
			if desc.Payload != PayloadSend {
				return nil, fmt.Errorf("argument %d: %s does not take a FITS payload", i, desc.Name)
			}
			enc, err := wire.EncodeFITS(v)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		default:
			out[i] = a
		}
	}
	return out, nil
}

// invokeInto runs an operation and decodes its result in one step.
func (c *Client) invokeInto(ctx context.Context, out any, op string, args ...any) error {
	res, err := c.Invoke(ctx, op, args...)
	if err != nil {
		return err
	}
	if err := res.Decode(out); err != nil {
		return &CallError{Op: op, Err: err}
	}
	return nil
}
