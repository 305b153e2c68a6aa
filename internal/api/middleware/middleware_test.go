package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/screencopilot/internal/auth"
	"github.com/yoockh/screencopilot/internal/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(tokens *auth.RoomTokens) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()))
	g := r.Group("/", RoomAuth(tokens))
	g.GET("/rooms/:room", RequireRoomParam("room"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxIdentity))
	})
	return r
}

func TestRoomAuth(t *testing.T) {
	t.Parallel()

	tokens := auth.NewRoomTokens("s3cret", 0)
	tok, err := tokens.Mint("demo", "viewer-1")
	require.NoError(t, err)
	r := newRouter(tokens)

	cases := map[string]struct {
		path   string
		header string
		want   int
	}{
		"bearer header": {"/rooms/demo", "Bearer " + tok, http.StatusOK},
		"query token":   {"/rooms/demo?token=" + tok, "", http.StatusOK},
		"missing token": {"/rooms/demo", "", http.StatusUnauthorized},
		"bad token":     {"/rooms/demo", "Bearer nope", http.StatusUnauthorized},
		"other room":    {"/rooms/other", "Bearer " + tok, http.StatusForbidden},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
			if tc.want == http.StatusOK {
				assert.Equal(t, "viewer-1", w.Body.String())
			}
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	r := newRouter(auth.NewRoomTokens("s3cret", 0))
	req := httptest.NewRequest(http.MethodGet, "/rooms/demo", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))
}
