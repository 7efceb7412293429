package safe

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/utils/ctxlog"
)

// Call executes handler and converts a panic into an error
//
// Behavior:
//   - Returns the handler's error as is
//   - Recovers from panics, logs the stack trace and returns an error
//     whose message contains the recovered value
func Call(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctxlog.From(ctx).Error("panic recovered",
				"recover", r,
				"stack", string(stack))

			err = goerr.New(fmt.Sprintf("panic: %v", r),
				goerr.V("stack", string(stack)))
		}
	}()

	return handler(ctx)
}
