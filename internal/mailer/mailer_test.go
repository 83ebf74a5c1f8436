package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/skills"
)

func fptr(v float64) *float64 { return &v }

func samplePayload() Payload {
	return Payload{
		UserID:      "u1",
		UserEmail:   "ada@example.com",
		ModuleID:    "m1",
		ModuleTitle: "Active Listening",
		CourseTitle: "Communication",
		Slide:       7,
		Skills: []skills.SkillScore{
			{Name: "Listening", Score: 4.0, IndividualScores: []float64{4}},
			{Name: "listening", Score: 5.0, IndividualScores: []float64{5}},
			{Name: "Empathy", Score: 3.0},
		},
		QuizScore: fptr(66.66),
		UserName:  "Ada",
	}
}

func TestPayloadJSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(Payload{UserID: "u", UserEmail: "e", ModuleID: "m", Slide: 3})
	require.NoError(t, err)
	for _, field := range []string{`"userId"`, `"userEmail"`, `"moduleId"`, `"moduleTitle"`, `"courseTitle"`, `"slide":3`} {
		assert.Contains(t, string(raw), field)
	}
	for _, optional := range []string{"averageScore", "skills", "quizScore", "userName"} {
		assert.NotContains(t, string(raw), optional, "absent optional fields are omitted")
	}
}

func TestPayloadValidate(t *testing.T) {
	assert.NoError(t, samplePayload().Validate())

	err := Payload{ModuleID: "m"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Contains(t, err.Error(), "userEmail")
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(samplePayload())

	require.Len(t, s.Skills, 2)
	assert.Equal(t, "Listening", s.Skills[0].Name)
	assert.Equal(t, 4.5, s.Skills[0].Score)
	require.NotNil(t, s.AverageScore)
	assert.Equal(t, 3.8, *s.AverageScore, "mean of 4.5 and 3.0 is 3.75, rounded half away from zero")
	require.NotNil(t, s.QuizScore)
	assert.Equal(t, 66.7, *s.QuizScore)

	p := samplePayload()
	p.AverageScore = fptr(2.04)
	assert.Equal(t, 2.0, *BuildSummary(p).AverageScore, "client average wins when present")

	empty := BuildSummary(Payload{UserEmail: "x@y.z", ModuleID: "m"})
	assert.Nil(t, empty.AverageScore, "no skills means no average")
	assert.Equal(t, "there", empty.UserName)
}

func TestRender(t *testing.T) {
	html, text, err := BuildSummary(samplePayload()).Render()
	require.NoError(t, err)

	assert.Contains(t, html, "Hi Ada,")
	assert.Contains(t, html, "Active Listening")
	assert.Contains(t, html, "3.8 / 5")
	assert.Contains(t, html, "(4.0, 5.0)")
	assert.Contains(t, text, "- Listening: 4.5")
	assert.Contains(t, text, "Quiz score: 66.7%")

	p := samplePayload()
	p.ModuleTitle = "<script>alert(1)</script>"
	html, _, err = BuildSummary(p).Render()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>", "titles are escaped")
}

func TestHTTPDispatcher(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SendPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Result{Success: true})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL+"/", time.Second)
	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	assert.Equal(t, "ada@example.com", got.UserEmail)
	assert.Equal(t, 7, got.Slide)
	assert.Len(t, got.Skills, 3, "the client sends skills as collected")
}

func TestHTTPDispatcherFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"success false", http.StatusOK, `{"success":false,"error":"quota exceeded"}`, "quota exceeded"},
		{"server error", http.StatusBadGateway, `{"success":false}`, "Bad Gateway"},
		{"not json", http.StatusInternalServerError, `oops`, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			err := NewHTTPDispatcher(srv.URL, time.Second).Dispatch(context.Background(), samplePayload())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDispatchFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestHandlerSendsSummary(t *testing.T) {
	sender := NewConsoleSender(nil, mail.Address{Name: "LearnLoop", Address: "no-reply@learnloop.local"})
	m := metrics.New()
	srv := httptest.NewServer(NewHandler(sender, nil, m).Routes())
	defer srv.Close()

	err := NewHTTPDispatcher(srv.URL, time.Second).Dispatch(context.Background(), samplePayload())
	require.NoError(t, err)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To.Address)
	assert.Equal(t, "Ada", sent[0].To.Name)
	assert.Contains(t, sent[0].Subject, "Active Listening")
	assert.Contains(t, sent[0].HTML, "Empathy")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailDispatches.WithLabelValues(metrics.ResultOK)))
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	h := NewHandler(NewConsoleSender(nil, mail.Address{}), nil, nil).Routes()

	for _, body := range []string{`{`, `{"moduleId":"m"}`, `{"moduleId":"m","userEmail":"not an address"}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, SendPath, strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)

		var res Result
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	}
}

type failingSender struct{}

func (failingSender) Send(context.Context, Message) error { return errors.New("smtp down") }

func TestHandlerSenderFailure(t *testing.T) {
	h := NewHandler(failingSender{}, nil, nil).Routes()
	body, _ := json.Marshal(samplePayload())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, SendPath, bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "smtp down", res.Error)
}

func TestSendgridSender(t *testing.T) {
	var (
		auth string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, sendgridEndpoint, r.URL.Path)
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendgridSender("sg-key", srv.URL, "LearnLoop", "no-reply@learnloop.local")
	err := s.Send(context.Background(), Message{
		To:      mail.Address{Name: "Ada", Address: "ada@example.com"},
		Subject: "Hello",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", auth)

	personalizations, _ := body["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	first, _ := personalizations[0].(map[string]any)
	assert.Equal(t, "[LearnLoop] Hello", first["subject"])
}

func TestSendgridSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":[{"message":"bad key"}]}`)
	}))
	defer srv.Close()

	err := NewSendgridSender("bad", srv.URL, "LearnLoop", "a@b.c").Send(context.Background(), Message{To: mail.Address{Address: "x@y.z"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestConsoleSenderOutput(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender(&buf, mail.Address{Name: "LearnLoop", Address: "no-reply@learnloop.local"})
	require.NoError(t, s.Send(context.Background(), Message{To: mail.Address{Address: "ada@example.com"}, Subject: "Hi", Text: "body"}))

	out := buf.String()
	assert.Contains(t, out, "Subject: Hi")
	assert.Contains(t, out, "<ada@example.com>")
	assert.Contains(t, out, "body")
}
