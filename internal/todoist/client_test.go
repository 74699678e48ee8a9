package todoist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskrelay/internal/httpclient"
)

func newServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New("secret", WithBaseURL(srv.URL))
}

func TestFindProjectCaseInsensitiveAcrossPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = w.Write([]byte(`{"results":[{"id":"1","name":"Inbox"}],"next_cursor":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"results":[{"id":"7","name":"LinkedIn Writer"}],"next_cursor":null}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	})
	c := newServer(t, mux)

	id, err := c.FindProject(context.Background(), "linkedin writer")
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	_, err = c.FindProject(context.Background(), "Linked")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestListTasksUnionOfPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("project_id"))
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"results":[{"id":"a","content":"First","labels":["x"]}],"next_cursor":"c1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"b","content":"Second","description":"more","labels":[]}]}`))
	})
	c := newServer(t, mux)

	tasks, err := c.ListTasks(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "First", tasks[0].Content)
	assert.Equal(t, []string{"x"}, tasks[0].Labels)
	assert.Equal(t, "more", tasks[1].Description)
}

func TestAddCommentAndSetLabels(t *testing.T) {
	var comment map[string]string
	var labels map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /comments", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&comment))
		_, _ = w.Write([]byte(`{"id":"c"}`))
	})
	mux.HandleFunc("POST /tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&labels))
		_, _ = w.Write([]byte(`{"id":"t1"}`))
	})
	c := newServer(t, mux)

	require.NoError(t, c.AddComment(context.Background(), "t1", "Working on it..."))
	assert.Equal(t, map[string]string{"task_id": "t1", "content": "Working on it..."}, comment)

	require.NoError(t, c.SetLabels(context.Background(), "t1", nil))
	assert.Equal(t, []string{}, labels["labels"])
}

func TestErrorsCarryStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Forbidden","error_code":403}`))
	})
	c := newServer(t, mux)

	err := c.AddComment(context.Background(), "t1", "hi")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httpclient.StatusCode(err))
	assert.Contains(t, err.Error(), "Todoist API 403: Forbidden")
}
