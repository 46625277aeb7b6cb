package assistant

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"investor_dashboard/pkg/core/agent"
	"investor_dashboard/pkg/core/knowledge"
	"investor_dashboard/pkg/core/llm"
	"investor_dashboard/pkg/core/marketdata"
	"investor_dashboard/pkg/core/utils"
)

// Handler provides HTTP handlers for the chat assistant.
type Handler struct {
	agentMgr *agent.Manager
	kb       knowledge.Store
	series   map[string]*marketdata.Series
}

// NewHandler creates a new assistant handler.
func NewHandler(mgr *agent.Manager, kb knowledge.Store, series map[string]*marketdata.Series) *Handler {
	return &Handler{agentMgr: mgr, kb: kb, series: series}
}

func cors(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// ChatRequest is a free-form question, optionally scoped to a ticker.
type ChatRequest struct {
	Message string `json:"message"`
	Ticker  string `json:"ticker,omitempty"`
}

// ChatResponse carries the assistant's markdown answer and the names
// of the knowledge assets it drew on.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

const chatSystemPrompt = `You are PickMe Assistant, the investor dashboard's analyst.
You answer questions about the tracked companies using the supplied context
passages plus general financial knowledge. Be concise, cite figures from the
context when they exist, and say plainly when the context does not cover the
question. Respond in Markdown.`

// HandleChat answers a question using keyword retrieval over the
// knowledge base for grounding.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	prompt, sources := h.buildChatPrompt(req.Message, req.Ticker)

	answer, err := h.agentMgr.ExecutePrompt(r.Context(), "chat", prompt, chatSystemPrompt, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("assistant unavailable: %v", err), http.StatusBadGateway)
		return
	}

	json.NewEncoder(w).Encode(ChatResponse{
		Answer:  utils.CleanMarkdown(answer),
		Sources: sources,
	})
}

// buildChatPrompt grounds the question with retrieved passages and
// scopes it to the ticker when given. Retrieval failures degrade to an
// uncontexted prompt rather than failing the chat.
func (h *Handler) buildChatPrompt(message, ticker string) (string, []string) {
	var contextParts []string
	var sources []string
	seen := map[string]bool{}
	if h.kb != nil {
		chunks, err := h.kb.SearchChunks(message, 5)
		if err != nil {
			fmt.Printf("[WARNING] Knowledge search failed: %v\n", err)
		}
		for _, chunk := range chunks {
			contextParts = append(contextParts, chunk.Content)
			if asset, err := h.kb.GetAsset(chunk.AssetID); err == nil && !seen[asset.Name] {
				seen[asset.Name] = true
				sources = append(sources, asset.Name)
			}
		}
	}

	prompt := message
	if ticker != "" {
		prompt = fmt.Sprintf("Question about %s: %s", strings.ToUpper(ticker), message)
	}
	if len(contextParts) > 0 {
		prompt = fmt.Sprintf("Context passages:\n%s\n\n%s", strings.Join(contextParts, "\n---\n"), prompt)
	}
	return prompt, sources
}

// HandleChatStream answers the same way as HandleChat but delivers the
// reply as server-sent events. Providers without a streaming path send
// the whole answer as one event; the stream always ends with [DONE].
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	prompt, _ := h.buildChatPrompt(req.Message, req.Ticker)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, canFlush := w.(http.Flusher)
	send := func(text string) {
		payload, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if canFlush {
			flusher.Flush()
		}
	}

	provider := h.agentMgr.GetProvider("stream")
	if streamer, ok := provider.(llm.Streamer); ok {
		if err := streamer.StreamResponse(r.Context(), prompt, chatSystemPrompt, send); err != nil {
			fmt.Printf("[WARNING] Chat stream failed: %v\n", err)
			send(fmt.Sprintf("stream failed: %v", err))
		}
	} else {
		answer, err := h.agentMgr.ExecutePrompt(r.Context(), "stream", prompt, chatSystemPrompt, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("assistant unavailable: %v", err), http.StatusBadGateway)
			return
		}
		send(utils.CleanMarkdown(answer))
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if canFlush {
		flusher.Flush()
	}
}

// InterpretRequest carries the valuation metrics to narrate.
type InterpretRequest struct {
	ImpliedSharePrice float64 `json:"implied_share_price"`
	CurrentSharePrice float64 `json:"current_share_price"`
	Upside            float64 `json:"upside"`
	EnterpriseValue   float64 `json:"enterprise_value"`
	WACC              float64 `json:"wacc"`
	TerminalGrowth    float64 `json:"terminal_growth_rate"`
}

// HandleInterpret produces a short plain-language reading of a DCF
// result for a non-expert investor.
func (h *Handler) HandleInterpret(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req InterpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prompt := fmt.Sprintf(`As a financial analyst, provide a brief interpretation of the following DCF valuation results for a company.
The target audience is an investor who may not be a financial expert. Explain what the numbers mean in simple terms.

**Valuation Metrics:**
- **Implied Share Price:** %.2f LKR
- **Current Share Price:** %.2f LKR
- **Upside/Downside:** %.2f%%
- **Enterprise Value:** %.0f LKR

**Key Assumptions Used:**
- **WACC (Discount Rate):** %.2f%%
- **Terminal Growth Rate:** %.2f%%

Respond with a single JSON object with three string keys, one or two sentences each:
summary (the valuation outcome in one sentence), explanation (what the implied price
vs. current price suggests) and assumptions (note that the result is sensitive to
WACC and terminal growth). No text outside the JSON object.`,
		req.ImpliedSharePrice, req.CurrentSharePrice, req.Upside*100,
		req.EnterpriseValue, req.WACC*100, req.TerminalGrowth*100)

	answer, err := h.agentMgr.ExecutePrompt(r.Context(), "interpreter", prompt, "", nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("assistant unavailable: %v", err), http.StatusBadGateway)
		return
	}

	// Models routinely damage the requested JSON (fences, single quotes,
	// trailing commas); repair and validate before rendering. Replies
	// that are not JSON at all are passed through as markdown.
	if v, ok := parseInterpretation(answer); ok {
		json.NewEncoder(w).Encode(ChatResponse{Answer: v.render()})
		return
	}
	json.NewEncoder(w).Encode(ChatResponse{Answer: utils.CleanMarkdown(answer)})
}

// Interpretation is the structured verdict the interpreter role is asked
// to return.
type Interpretation struct {
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
	Assumptions string `json:"assumptions"`
}

func (v Interpretation) render() string {
	out := fmt.Sprintf("**Summary:** %s", strings.TrimSpace(v.Summary))
	if v.Explanation != "" {
		out += fmt.Sprintf("\n\n**Explanation:** %s", strings.TrimSpace(v.Explanation))
	}
	if v.Assumptions != "" {
		out += fmt.Sprintf("\n\n**Assumptions:** %s", strings.TrimSpace(v.Assumptions))
	}
	return out
}

// parseInterpretation extracts the verdict struct from a model reply,
// repairing damaged JSON along the way. A reply without a summary field
// does not count as structured output.
func parseInterpretation(answer string) (Interpretation, bool) {
	var v Interpretation
	if _, err := utils.SmartParse(utils.CleanMarkdown(answer), &v); err != nil {
		return Interpretation{}, false
	}
	if strings.TrimSpace(v.Summary) == "" {
		return Interpretation{}, false
	}
	return v, true
}

// TimingRequest names the ticker to assess.
type TimingRequest struct {
	Ticker string `json:"ticker"`
}

// HandleTiming produces a market-entry timing read from the ticker's
// latest close and moving averages.
func (h *Handler) HandleTiming(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TimingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}
	s, ok := h.series[ticker]
	if !ok || len(s.Bars) == 0 {
		http.Error(w, fmt.Sprintf("no history loaded for %s", ticker), http.StatusNotFound)
		return
	}

	last := len(s.Bars) - 1
	prompt := fmt.Sprintf(`As a financial analyst, give a brief market-entry timing read for %s based on its price trend.
The target audience is an investor who may not be a financial expert.

**Current Technicals:**
- **Latest Close:** %.2f LKR
- **20-Day Moving Average:** %.2f LKR
- **50-Day Moving Average:** %.2f LKR

Explain what the price sitting above or below its moving averages suggests about momentum, and whether the
crossover structure looks favorable for entering now or waiting. Remind the reader this is trend information,
not a guarantee. Keep the entire response to about 3-4 sentences.`,
		ticker, s.LatestClose(), s.MA20[last], s.MA50[last])

	answer, err := h.agentMgr.ExecutePrompt(r.Context(), "market", prompt, "", nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("assistant unavailable: %v", err), http.StatusBadGateway)
		return
	}

	json.NewEncoder(w).Encode(ChatResponse{Answer: utils.CleanMarkdown(answer)})
}
