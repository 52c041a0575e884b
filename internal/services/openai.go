package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meetingrec/internal/config"
	"meetingrec/internal/domain"
)

const defaultRequestTimeout = 10 * time.Minute

const analysisSystemPrompt = `You are an expert meeting analyzer specializing in creating comprehensive visual representations of meetings.
Always ensure the Mermaid diagram code is valid and starts with 'graph TD'.
Use simple shapes and clear connections in the diagram.
Avoid complex Mermaid syntax that might not be widely supported.`

const analysisPromptTemplate = `Analyze the following meeting transcript and provide a comprehensive analysis with:
1. A concise executive summary
2. Detailed action items with assignees and deadlines
3. A detailed Mermaid diagram that shows:
   - Main discussion topics and their flow
   - Decision points
   - Action items connected to responsible persons
   - Important conclusions
   - Any blockers or dependencies identified

For the Mermaid diagram, strictly follow these rules:
1. Use only graph TD or graph TB direction
2. Start the diagram with: 'graph TD'
3. Use proper Mermaid syntax for nodes and connections
4. Do not use parentheses or other special characters in node names.
5. Use these node styles:
   - Topics: [Topic Name]
   - Decisions: [Decision Point]
   - Actions: ([Action Item])
   - People: ((Person Name))
6. Example format:
    graph TD
        A[Meeting Start] --> B[Decision 1]
        B --> |Approved| C([Action Item 1])
        C --> D((John))
        style B fill:#ff9999,stroke:#000,stroke-width:2px
        style D fill:#99ff99,stroke:#000,stroke-width:2px

Transcript:
%s

Format the response as JSON with the following structure:
{
    "executive_summary": "brief but comprehensive summary",
    "action_items": [
        {
            "task": "task description",
            "assignee": "person name",
            "deadline": "deadline or timeframe",
            "priority": "high/medium/low",
            "dependencies": ["any dependencies"]
        }
    ],
    "key_decisions": ["list of key decisions made"],
    "mermaid_diagram": "mermaid diagram code here"
}`

// Analyzer sends a transcript to a language model and returns its raw reply.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

type OpenAIService struct {
	apiKey          string
	baseURL         string
	reqTimeout      time.Duration
	transcribeModel string
	analysisModel   string
	httpClient      *http.Client
	log             zerolog.Logger
}

func NewOpenAIService(cfg config.Config, log zerolog.Logger) *OpenAIService {
	timeout := cfg.OpenAITimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OpenAIService{
		apiKey:          cfg.OpenAIAPIKey,
		baseURL:         strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		reqTimeout:      timeout,
		transcribeModel: cfg.OpenAIModelTranscribe,
		analysisModel:   cfg.OpenAIModelAnalysis,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// BuildAnalysisPrompt embeds the transcript verbatim in the analysis prompt.
func BuildAnalysisPrompt(transcript string) string {
	return fmt.Sprintf(analysisPromptTemplate, transcript)
}

// Analyze asks the chat completion endpoint for a JSON analysis of the
// transcript. The reply content is returned unparsed.
func (s *OpenAIService) Analyze(ctx context.Context, transcript string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", domain.AnalysisTransportError("analyze", err)
	}

	payload := map[string]any{
		"model": s.analysisModel,
		"messages": []map[string]string{
			{"role": "system", "content": analysisSystemPrompt},
			{"role": "user", "content": BuildAnalysisPrompt(transcript)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", domain.AnalysisTransportError("analyze", fmt.Errorf("encode analysis payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", domain.AnalysisTransportError("analyze", fmt.Errorf("create analysis request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	s.log.Info().Str("model", s.analysisModel).Int("transcriptChars", len(transcript)).Msg("requesting analysis")

	resp, err := s.do(req)
	if err != nil {
		return "", domain.AnalysisTransportError("analyze", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", domain.AnalysisTransportError("analyze", s.decodeAPIError(resp))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", domain.AnalysisTransportError("analyze", fmt.Errorf("decode analysis response: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", domain.AnalysisTransportError("analyze", errors.New("no analysis returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// Transcribe uploads a recording to the hosted transcription endpoint. Used
// when TRANSCRIBE_ENGINE=openai.
func (s *OpenAIService) Transcribe(ctx context.Context, path string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", domain.TranscriptionError("transcribe", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("open audio file: %w", err))
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("create multipart file: %w", err))
	}

	if _, err := io.Copy(part, file); err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("copy audio data: %w", err))
	}

	if err := writer.WriteField("model", s.transcribeModel); err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("write model field: %w", err))
	}

	if err := writer.Close(); err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("create transcription request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(req)
	if err != nil {
		return "", domain.TranscriptionError("transcribe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", domain.TranscriptionError("transcribe", s.decodeAPIError(resp))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("decode transcription response: %w", err))
	}

	return strings.TrimSpace(payload.Text), nil
}

func (s *OpenAIService) do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), s.reqTimeout)
	req = req.WithContext(ctx)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context once the body has been read.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func (s *OpenAIService) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)

	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (s *OpenAIService) ensureAPIKey() error {
	if strings.TrimSpace(s.apiKey) == "" {
		return errors.New("openai api key is not configured")
	}
	return nil
}
