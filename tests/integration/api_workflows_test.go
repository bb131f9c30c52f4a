package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkovalev/novel-translate-back/internal/cache"
	httpserver "github.com/dkovalev/novel-translate-back/internal/http"
	"github.com/dkovalev/novel-translate-back/internal/http/handlers"
	"github.com/dkovalev/novel-translate-back/internal/quality"
	"github.com/dkovalev/novel-translate-back/internal/registry"
	"github.com/dkovalev/novel-translate-back/internal/service"
	"github.com/dkovalev/novel-translate-back/internal/translator"
	"github.com/dkovalev/novel-translate-back/internal/worker"
)

type integrationRuntime struct {
	server *httptest.Server
	cancel context.CancelFunc
}

// fakeDeepSeekBackend answers chat completion calls by echoing the segment
// text (everything after the prompt marker) with a translation tag.
func fakeDeepSeekBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode backend request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var segmentText string
		for _, message := range request.Messages {
			if message.Role != "user" {
				continue
			}
			if index := strings.LastIndex(message.Content, "Текст: "); index >= 0 {
				segmentText = message.Content[index+len("Текст: "):]
			}
		}

		response := map[string]any{
			"model": "deepseek-chat",
			"choices": []map[string]any{
				{"message": map[string]string{
					"role":    "assistant",
					"content": "[RU]" + segmentText,
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
}

func startIntegrationRuntime(t *testing.T, backendURL string, maxSegmentChars int) integrationRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(io.Discard, "", 0)
	reg := registry.NewMemoryRegistry()

	client := translator.NewDeepSeekClient(translator.DeepSeekClientConfig{
		APIKey:  "integration-test-key",
		BaseURL: backendURL,
	})
	pool := worker.NewPool(worker.PoolConfig{Size: 8, QueueCapacity: 256}, worker.PoolDependencies{
		Translator: client,
		Cache:      cache.NewMemoryCache(cache.MemoryConfig{}),
		Validator:  quality.NewValidator(quality.ValidatorConfig{}),
		Logger:     logger,
	})
	pool.Start(ctx)

	coordinator := worker.NewCoordinator(reg, pool, worker.CoordinatorConfig{Watchdog: 10 * time.Second}, logger)
	svc := service.NewTranslationService(service.Config{
		MaxSegmentChars: maxSegmentChars,
		MaxContextChars: 40,
	}, service.Dependencies{
		Registry:    reg,
		Coordinator: coordinator,
		RunContext:  ctx,
		Logger:      logger,
	})

	api := handlers.NewAPI(svc, 0, logger)
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	return integrationRuntime{
		server: server,
		cancel: func() {
			cancel()
			server.Close()
		},
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) (int, map[string]any) {
	t.Helper()

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func getJSON(t *testing.T, client *http.Client, url string) (int, map[string]any) {
	t.Helper()

	response, err := client.Get(url)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func waitCompleted(t *testing.T, client *http.Client, baseURL, jobID string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		statusCode, body := getJSON(t, client, baseURL+"/check_progress/"+jobID)
		if statusCode != http.StatusOK {
			t.Fatalf("check_progress status = %d: %v", statusCode, body)
		}
		switch body["status"] {
		case "completed":
			return
		case "failed":
			t.Fatalf("job failed: %v", body["error"])
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not complete in time")
}

func TestUploadTranslateDownloadWorkflow(t *testing.T) {
	backend := fakeDeepSeekBackend(t)
	defer backend.Close()

	runtime := startIntegrationRuntime(t, backend.URL, 0)
	defer runtime.cancel()
	client := runtime.server.Client()

	sourceText := "Жил-был кот по имени Барсик. Он очень любил спать на подоконнике."
	statusCode, body := postJSON(t, client, runtime.server.URL+"/upload", map[string]any{
		"filename": "skazka.txt",
		"text":     sourceText,
	})
	if statusCode != http.StatusOK {
		t.Fatalf("upload status = %d: %v", statusCode, body)
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("upload response without job_id: %v", body)
	}

	statusCode, body = postJSON(t, client, runtime.server.URL+"/translate/"+jobID, nil)
	if statusCode != http.StatusOK {
		t.Fatalf("translate status = %d: %v", statusCode, body)
	}

	waitCompleted(t, client, runtime.server.URL, jobID)

	response, err := client.Get(runtime.server.URL + "/download/" + jobID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", response.StatusCode)
	}
	if disposition := response.Header.Get("Content-Disposition"); !strings.Contains(disposition, "skazka_translated_ru.txt") {
		t.Errorf("Content-Disposition = %q", disposition)
	}

	translated, _ := io.ReadAll(response.Body)
	if string(translated) != "[RU]"+sourceText {
		t.Errorf("download body = %q", string(translated))
	}
}

func TestMultiSegmentAssemblyPreservesOrder(t *testing.T) {
	backend := fakeDeepSeekBackend(t)
	defer backend.Close()

	// small segment cap forces a many-segment job through the shared pool
	runtime := startIntegrationRuntime(t, backend.URL, 48)
	defer runtime.cancel()
	client := runtime.server.Client()

	var source strings.Builder
	for i := 0; i < 20; i++ {
		source.WriteString("Предложение номер ")
		source.WriteString(strings.Repeat("я", i+1))
		source.WriteString(". ")
	}
	sourceText := source.String()

	statusCode, body := postJSON(t, client, runtime.server.URL+"/upload", map[string]any{
		"filename": "roman.txt",
		"text":     sourceText,
	})
	if statusCode != http.StatusOK {
		t.Fatalf("upload status = %d: %v", statusCode, body)
	}
	jobID := body["job_id"].(string)
	if segments, _ := body["total_segments"].(float64); segments < 5 {
		t.Fatalf("total_segments = %v, want a multi-segment job", body["total_segments"])
	}

	if statusCode, body = postJSON(t, client, runtime.server.URL+"/translate/"+jobID, nil); statusCode != http.StatusOK {
		t.Fatalf("translate status = %d: %v", statusCode, body)
	}
	waitCompleted(t, client, runtime.server.URL, jobID)

	response, err := client.Get(runtime.server.URL + "/download/" + jobID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer response.Body.Close()
	translated, _ := io.ReadAll(response.Body)

	// stripping the per-segment tag must reproduce the source byte for byte
	reassembled := strings.ReplaceAll(string(translated), "[RU]", "")
	if reassembled != sourceText {
		t.Errorf("reassembled text does not match the source:\n got %q\nwant %q", reassembled, sourceText)
	}
}

func TestErrorStatusesAcrossWorkflow(t *testing.T) {
	backend := fakeDeepSeekBackend(t)
	defer backend.Close()

	runtime := startIntegrationRuntime(t, backend.URL, 0)
	defer runtime.cancel()
	client := runtime.server.Client()

	statusCode, _ := postJSON(t, client, runtime.server.URL+"/upload", map[string]any{
		"filename": "novel.txt",
		"text":     "   ",
	})
	if statusCode != http.StatusBadRequest {
		t.Errorf("empty upload status = %d, want 400", statusCode)
	}

	statusCode, _ = postJSON(t, client, runtime.server.URL+"/translate/no-such-job", nil)
	if statusCode != http.StatusNotFound {
		t.Errorf("translate unknown job status = %d, want 404", statusCode)
	}

	statusCode, body := postJSON(t, client, runtime.server.URL+"/upload", map[string]any{
		"filename": "novel.txt",
		"text":     "Текст без перевода.",
	})
	if statusCode != http.StatusOK {
		t.Fatalf("upload status = %d", statusCode)
	}
	jobID := body["job_id"].(string)

	response, err := client.Get(runtime.server.URL + "/download/" + jobID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusConflict {
		t.Errorf("download before translate status = %d, want 409", response.StatusCode)
	}
}
