package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderTelegramID lets the chat adapter name the end user a request acts
// for. It only feeds rate limiting, idempotency scoping and logs; it is not
// an authorization mechanism.
const HeaderTelegramID = "X-Telegram-ID"

// TelegramID returns the positive id from HeaderTelegramID, if any.
func TelegramID(c *gin.Context) (int64, bool) {
	v := strings.TrimSpace(c.GetHeader(HeaderTelegramID))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ClientKey identifies the caller: "tg:<id>" when the adapter named a user,
// "ip:<addr>" otherwise.
func ClientKey(c *gin.Context) string {
	if id, ok := TelegramID(c); ok {
		return "tg:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
