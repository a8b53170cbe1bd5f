package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		InvalidArgument:    http.StatusBadRequest,
		Unauthorized:       http.StatusUnauthorized,
		Conflict:           http.StatusConflict,
		NotFound:           http.StatusNotFound,
		StorageUnavailable: http.StatusInternalServerError,
		Internal:           http.StatusInternalServerError,
	}
	for k, want := range cases {
		require.Equal(t, want, Status(k), k.String())
	}
}

func TestKindOfAndIs(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Missing("user not found"))
	require.Equal(t, NotFound, KindOf(err))
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrConflict))
	require.Equal(t, "user not found", Message(err))

	require.Equal(t, Internal, KindOf(errors.New("boom")))
	require.Equal(t, "internal error", Message(errors.New("boom")))

	cause := errors.New("connection reset")
	serr := Storage(cause)
	require.ErrorIs(t, serr, cause)
	require.ErrorIs(t, serr, ErrStorageUnavailable)
}

func TestWriteRendersBody(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { Write(c, Duplicate("User already exists")) })
	r.GET("/y", func(c *gin.Context) { Write(c, Storage(errors.New("secret driver detail"))) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "User already exists", body.Error)
	require.Equal(t, "CONFLICT", body.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/y", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "secret driver detail")
}
