package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// This test validates:
// - timeouts and network errors classify as the backend being unreachable,
//   even when wrapped
// - other remote failures do not
func TestUnavailable(t *testing.T) {
	require.False(t, Unavailable(nil))
	require.False(t, Unavailable(errors.New("constraint violation")))
	require.False(t, Unavailable(Errf("create transaction", errors.New("permission denied"))))

	require.True(t, Unavailable(context.DeadlineExceeded))
	require.True(t, Unavailable(Errf("fetch products", context.DeadlineExceeded)))

	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	require.True(t, Unavailable(fmt.Errorf("query: %w", netErr)))
}
