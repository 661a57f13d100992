package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/habits/internal/services"
	"github.com/lojf/habits/internal/validation"
)

func TestWriteErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{&validation.Error{Field: "periodicity", Message: "too big"}, 400, `{"error":"too big","field":"periodicity"}`},
		{fmt.Errorf("load: %w", services.ErrNotFound), 404, `{"error":"not found"}`},
		{fmt.Errorf("%w: email", services.ErrConflict), 409, `{"error":"already in use: email"}`},
		{services.ErrInvalidCredentials, 401, `{"error":"unable to log in with provided credentials"}`},
		{badRequest("page", "bad page"), 400, `{"error":"bad page","field":"page"}`},
		{errors.New("disk on fire"), 500, `{"error":"internal server error"}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), c.err)
		assert.Equal(t, c.status, rec.Code, c.err.Error())
		assert.JSONEq(t, c.body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestDecodeIntoKeepsUnsetFields(t *testing.T) {
	in := services.HabitInput{Place: "home", Action: "read"}
	require.NoError(t, decodeInto([]byte(`{"action":"write"}`), &in))
	assert.Equal(t, "home", in.Place)
	assert.Equal(t, "write", in.Action)

	var herr *httpError
	err := decodeInto([]byte(`{"execution_time":"long"}`), &in)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "execution_time", herr.field)

	assert.ErrorAs(t, decodeInto([]byte(`[1,2]`), &in), &herr)
	assert.ErrorAs(t, decodeInto(nil, &in), &herr)
	assert.ErrorAs(t, decodeInto([]byte(`{"time":"25:99"}`), &in), &herr)
}

func TestPageFrom(t *testing.T) {
	p, err := pageFrom(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, services.Page{Number: 1, Size: services.DefaultPageSize}, p)

	p, err = pageFrom(httptest.NewRequest(http.MethodGet, "/x?page=3&page_size=1000", nil))
	require.NoError(t, err)
	assert.Equal(t, services.Page{Number: 3, Size: services.MaxPageSize}, p)

	_, err = pageFrom(httptest.NewRequest(http.MethodGet, "/x?page=0", nil))
	assert.Error(t, err)
	_, err = pageFrom(httptest.NewRequest(http.MethodGet, "/x?page_size=-1", nil))
	assert.Error(t, err)

	// a page whose offset would overflow is past the end of any listing
	var herr *httpError
	_, err = pageFrom(httptest.NewRequest(http.MethodGet, "/x?page=9223372036854775807&page_size=100", nil))
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.status)

	p, err = pageFrom(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/x?page=%d&page_size=100", services.MaxPageNumber(100)), nil))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Offset(), 0)
}

func TestDeepLink(t *testing.T) {
	h := New(Deps{BotUsername: "habits_bot"})
	assert.Equal(t, "https://t.me/habits_bot?start=123456", h.deepLink("123456"))
	assert.Empty(t, New(Deps{}).deepLink("123456"))
}
