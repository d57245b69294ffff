// Command llm-stub is a tiny OpenAI-compatible server for exercising the
// extraction pipeline without a real model. MODE selects its behavior:
//
//	ok         — return a fixed course array for every batch (default)
//	prose      — return narration with the array buried inside it
//	flaky-429  — fail every other request with 429, then succeed
//	quota      — fail every request with insufficient_quota
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	mode := os.Getenv("MODE")
	if strings.TrimSpace(mode) == "" {
		mode = "ok"
	}

	var calls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		n := calls.Add(1)

		switch mode {
		case "quota":
			apiError(w, http.StatusTooManyRequests, "insufficient_quota",
				"You exceeded your current quota, please check your plan and billing details.")
			return
		case "flaky-429":
			if n%2 == 1 {
				apiError(w, http.StatusTooManyRequests, "requests",
					"Rate limit reached, please try again later.")
				return
			}
		}

		courses := fmt.Sprintf(`[{"CourseName":"Stub Course %d","CourseCode":"ST%03d","GradeLevel":"9-12","Credit":"1.0","CourseDescription":"Placeholder record from the stub server."}]`, n, n)
		content := courses
		if mode == "prose" {
			content = "Here are the courses I found on these pages:\n```json\n" + courses + "\n```\nLet me know if you need anything else."
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("llm-stub listening on %s (model=%s mode=%s)", addr, model, mode)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

// apiError writes an OpenAI-style error envelope so client-side error
// classification sees the same shape a real gateway produces.
func apiError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"code":    errType,
		},
	})
}
