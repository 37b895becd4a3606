package usecase

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/utils/errutil"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 20
)

// reservedTopics mean "my notes" without naming any note and are rejected
var reservedTopics = []string{"My Notes", "user_notes"}

// Payload keys with their accepted aliases
var (
	keyMessage         = []string{"message"}
	keyUseNotes        = []string{"use_notes", "useNotes"}
	keyBucket          = []string{"bucket", "bucketName"}
	keyProvider        = []string{"provider"}
	keyProviderOptions = []string{"provider_options", "providerOptions"}
	keyNoteIDs         = []string{"note_ids", "filenames"}
	keyTopic           = []string{"topic"}
	keyNumQuestions    = []string{"num_questions", "numQuestions"}
)

// RouteResult is the status code and JSON body of a routed request
type RouteResult struct {
	Status int
	Body   any
}

// ErrorBody is the JSON body of a failed request
type ErrorBody struct {
	Error string `json:"error"`
}

// Router selects exactly one pipeline per request and converts every pipeline
// failure into a status code
type Router struct {
	chat    *ChatUseCase
	quiz    *QuizUseCase
	metrics *metrics.Collector
}

func NewRouter(chat *ChatUseCase, quiz *QuizUseCase, m *metrics.Collector) *Router {
	return &Router{
		chat:    chat,
		quiz:    quiz,
		metrics: m,
	}
}

// Route parses payload for feature and runs the matching pipeline. It never
// returns an error or panics: validation and insufficiency failures become 400,
// anything else becomes 500 carrying the error message.
func (r *Router) Route(ctx context.Context, feature string, payload map[string]any) (result *RouteResult) {
	pipeline := "invalid"
	logger := logging.From(ctx).With(FeatureKey, feature)
	ctx = logging.With(ctx, logger)

	defer func() {
		if rec := recover(); rec != nil {
			err := goerr.New(fmt.Sprintf("panic: %v", rec), goerr.V(FeatureKey, feature))
			errutil.Handle(ctx, err, "pipeline panicked")
			result = &RouteResult{
				Status: http.StatusInternalServerError,
				Body:   ErrorBody{Error: err.Error()},
			}
		}
		r.metrics.RecordRequest(pipeline, result.Status)
	}()

	req, err := ParseRequest(feature, payload)
	if err != nil {
		return r.failure(ctx, err)
	}
	pipeline = pipelineName(req)
	logger.Info("Routing request", "pipeline", pipeline)

	var body any
	switch v := req.(type) {
	case model.ChatRAGRequest:
		body, err = r.chat.AnswerFromNotes(ctx, v)
	case model.ChatGeneralRequest:
		body, err = r.chat.AnswerGeneral(ctx, v)
	case model.QuizNotesRequest:
		body, err = r.quiz.FromNotes(ctx, v)
	case model.QuizDatasetRequest:
		body, err = r.quiz.FromDataset(ctx, v)
	default:
		err = goerr.New("unhandled request type", goerr.V("type", fmt.Sprintf("%T", req)))
	}
	if err != nil {
		return r.failure(ctx, err)
	}

	return &RouteResult{Status: http.StatusOK, Body: body}
}

func (r *Router) failure(ctx context.Context, err error) *RouteResult {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "pipeline failed")
	} else {
		logging.From(ctx).Warn("Request rejected", "status", status, "error", err.Error())
	}
	return &RouteResult{
		Status: status,
		Body:   ErrorBody{Error: err.Error()},
	}
}

func pipelineName(req model.Request) string {
	switch req.(type) {
	case model.ChatRAGRequest:
		return "chat_rag"
	case model.ChatGeneralRequest:
		return "chat_general"
	case model.QuizNotesRequest:
		return "quiz_notes"
	case model.QuizDatasetRequest:
		return "quiz_dataset"
	}
	return "unknown"
}

// ParseRequest builds the single request variant selected by feature and the
// keys of payload. Every failure wraps ErrInvalidRequest.
func ParseRequest(feature string, payload map[string]any) (model.Request, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	switch types.Feature(feature) {
	case types.FeatureChat:
		return parseChatRequest(payload)
	case types.FeatureQuiz:
		return parseQuizRequest(payload)
	default:
		return nil, goerr.Wrap(ErrInvalidRequest, "unknown feature", goerr.V(FeatureKey, feature))
	}
}

func parseChatRequest(payload map[string]any) (model.Request, error) {
	message, err := stringField(payload, keyMessage)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "message is required")
	}

	useNotes, err := boolField(payload, keyUseNotes)
	if err != nil {
		return nil, err
	}

	providerName, err := stringField(payload, keyProvider)
	if err != nil {
		return nil, err
	}
	provider, err := types.ParseProvider(strings.ToLower(strings.TrimSpace(providerName)))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidRequest, fmt.Sprintf("invalid provider %q", providerName),
			goerr.V("allowed", types.AllProviders()))
	}

	opts, err := optionsField(payload, keyProviderOptions)
	if err != nil {
		return nil, err
	}

	if !useNotes {
		return model.ChatGeneralRequest{
			Message:         message,
			Provider:        provider,
			ProviderOptions: opts,
		}, nil
	}

	bucket, err := stringField(payload, keyBucket)
	if err != nil {
		return nil, err
	}
	bucket = strings.TrimSpace(bucket)
	if model.IsAllBuckets(bucket) {
		bucket = ""
	}

	return model.ChatRAGRequest{
		Message:         message,
		Bucket:          bucket,
		Provider:        provider,
		ProviderOptions: opts,
	}, nil
}

func parseQuizRequest(payload map[string]any) (model.Request, error) {
	num, err := numQuestionsField(payload)
	if err != nil {
		return nil, err
	}

	ids, err := stringSliceField(payload, keyNoteIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		noteIDs := make([]model.NoteID, len(ids))
		for i, id := range ids {
			noteIDs[i] = model.NoteID(id)
		}
		return model.QuizNotesRequest{NoteIDs: noteIDs, NumQuestions: num}, nil
	}

	topic, err := stringField(payload, keyTopic)
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "no quiz source (note_ids or topic) provided")
	}
	for _, reserved := range reservedTopics {
		if strings.EqualFold(topic, reserved) {
			return nil, goerr.Wrap(ErrInvalidRequest,
				fmt.Sprintf("topic %q selects notes but no note_ids were provided", topic))
		}
	}

	return model.QuizDatasetRequest{Topic: topic, NumQuestions: num}, nil
}

// lookup returns the first non-null value among keys
func lookup(payload map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(payload map[string]any, keys []string) (string, error) {
	v, ok := lookup(payload, keys)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", goerr.Wrap(ErrInvalidRequest, keys[0]+" must be a string", goerr.V("value", v))
	}
	return s, nil
}

func boolField(payload map[string]any, keys []string) (bool, error) {
	v, ok := lookup(payload, keys)
	if !ok {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, goerr.Wrap(ErrInvalidRequest, keys[0]+" must be a boolean", goerr.V("value", v))
		}
		return parsed, nil
	}
	return false, goerr.Wrap(ErrInvalidRequest, keys[0]+" must be a boolean", goerr.V("value", v))
}

func numQuestionsField(payload map[string]any) (int, error) {
	v, ok := lookup(payload, keyNumQuestions)
	if !ok {
		return DefaultNumQuestions, nil
	}

	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, goerr.Wrap(ErrInvalidRequest, "num_questions must be an integer", goerr.V("value", v))
		}
		n = int(x)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, goerr.Wrap(ErrInvalidRequest, "num_questions must be an integer", goerr.V("value", v))
		}
		n = parsed
	default:
		return 0, goerr.Wrap(ErrInvalidRequest, "num_questions must be an integer", goerr.V("value", v))
	}

	if n < 1 || n > MaxNumQuestions {
		return 0, goerr.Wrap(ErrInvalidRequest,
			fmt.Sprintf("num_questions must be between 1 and %d", MaxNumQuestions),
			goerr.V("value", n))
	}
	return n, nil
}

func stringSliceField(payload map[string]any, keys []string) ([]string, error) {
	v, ok := lookup(payload, keys)
	if !ok {
		return nil, nil
	}

	var raw []any
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	case []any:
		raw = x
	default:
		return nil, goerr.Wrap(ErrInvalidRequest, keys[0]+" must be a list of strings", goerr.V("value", v))
	}

	result := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidRequest, keys[0]+" must be a list of strings", goerr.V("item", item))
		}
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result, nil
}

func optionsField(payload map[string]any, keys []string) (model.ProviderOptions, error) {
	v, ok := lookup(payload, keys)
	if !ok {
		return model.ProviderOptions{}, nil
	}

	switch x := v.(type) {
	case map[string]string:
		return model.ProviderOptions(x), nil
	case map[string]any:
		opts := make(model.ProviderOptions, len(x))
		for k, val := range x {
			if val == nil {
				continue
			}
			opts[k] = fmt.Sprint(val)
		}
		return opts, nil
	}
	return nil, goerr.Wrap(ErrInvalidRequest, keys[0]+" must be an object", goerr.V("value", v))
}
