package guard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/refinery/internal/common"
)

// Denial is the error returned by every pipeline stage that refuses a
// request. Status is an HTTP status code; Message is safe to show to the
// caller; Err is the sentinel from internal/common.
type Denial struct {
	Status  int
	Message string
	Err     error
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%d %s: %v", d.Status, d.Message, d.Err)
}

func (d *Denial) Unwrap() error {
	return d.Err
}

func deny(status int, message string, err error) *Denial {
	return &Denial{Status: status, Message: message, Err: err}
}

// User-visible messages.
const (
	MsgSecurityCheck  = "security check failed"
	MsgOriginBlocked  = "access from this address is blocked"
	MsgAccountLocked  = "account is temporarily locked"
	MsgBadCredentials = "invalid username or password"
	MsgAuthRequired   = "authentication required"
	MsgSessionExpired = "session expired"
	MsgInvalidToken   = "invalid token"
	MsgInsufficient   = "insufficient permissions"
	MsgUnavailable    = "service temporarily unavailable"
	MsgInternal       = "internal error"
)

// AsDenial converts err into a Denial. Errors that are not denials become a
// 500 with a generic message.
func AsDenial(err error) *Denial {
	var d *Denial
	if errors.As(err, &d) {
		return d
	}
	return deny(http.StatusInternalServerError, MsgInternal, common.ErrorInternal)
}
