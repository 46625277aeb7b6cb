package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	apiassistant "investor_dashboard/pkg/api/assistant"
	apiconfig "investor_dashboard/pkg/api/config"
	apimarketdata "investor_dashboard/pkg/api/marketdata"
	apiportfolio "investor_dashboard/pkg/api/portfolio"
	apivaluation "investor_dashboard/pkg/api/valuation"
	"investor_dashboard/pkg/core/agent"
	"investor_dashboard/pkg/core/knowledge"
	"investor_dashboard/pkg/core/marketdata"
	"investor_dashboard/pkg/core/scenario"
	"investor_dashboard/pkg/core/store"
)

var agentMgr *agent.Manager

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize agent manager from config
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr = agent.NewManager(agentCfg)

	// Load price history
	dataDir := os.Getenv("MARKET_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	series, err := marketdata.LoadDirectory(dataDir)
	if err != nil {
		fmt.Printf("[WARNING] No market data loaded from %s: %v\n", dataDir, err)
		series = map[string]*marketdata.Series{}
	} else {
		fmt.Printf("[MARKETDATA] Loaded %d tickers from %s\n", len(series), dataDir)
	}

	// Load valuation scenarios
	scenarioDir := os.Getenv("SCENARIO_DIR")
	if scenarioDir == "" {
		scenarioDir = "scenarios"
	}
	scenarios, err := scenario.LoadDirectory(scenarioDir)
	if err != nil {
		fmt.Printf("[WARNING] No scenarios loaded from %s: %v\n", scenarioDir, err)
		scenarios = map[string]*scenario.Scenario{}
	} else {
		fmt.Printf("[SCENARIO] Loaded %d scenarios from %s\n", len(scenarios), scenarioDir)
	}

	// Snapshot cache (file-based unless a pool is wired in)
	snapshots := store.NewSnapshotCache(nil, "")

	// Seed the knowledge base with the loaded data so the assistant
	// can cite what the dashboard shows.
	kb := knowledge.NewMemoryStore()
	seedKnowledge(kb, series)

	// Live quote fetcher is opt-in via env
	var quotes *marketdata.QuoteFetcher
	if base := os.Getenv("QUOTE_BASE_URL"); base != "" {
		quotes = marketdata.NewQuoteFetcher(base)
	}

	// Config endpoints
	configHandler := apiconfig.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	// Assistant endpoints
	assistantHandler := apiassistant.NewHandler(agentMgr, kb, series)
	http.HandleFunc("/api/assistant/chat", assistantHandler.HandleChat)
	http.HandleFunc("/api/assistant/chat/stream", assistantHandler.HandleChatStream)
	http.HandleFunc("/api/assistant/interpret", assistantHandler.HandleInterpret)
	http.HandleFunc("/api/assistant/timing", assistantHandler.HandleTiming)

	// Valuation endpoints
	apivaluation.InitHandler(scenarios, snapshots)
	http.HandleFunc("/api/valuation/dcf", apivaluation.HandleDCF)
	http.HandleFunc("/api/valuation/sensitivity", apivaluation.HandleSensitivity)
	http.HandleFunc("/api/valuation/montecarlo", apivaluation.HandleMonteCarlo)
	http.HandleFunc("/api/valuation/scenarios", apivaluation.HandleScenarios)

	// Market data endpoints
	apimarketdata.InitHandler(series, quotes)
	http.HandleFunc("/api/marketdata/tickers", apimarketdata.HandleTickers)
	http.HandleFunc("/api/marketdata/history", apimarketdata.HandleHistory)
	http.HandleFunc("/api/marketdata/quote", apimarketdata.HandleQuote)

	// Portfolio endpoints
	apiportfolio.InitHandler(series)
	http.HandleFunc("/api/portfolio/optimize", apiportfolio.HandleOptimize)
	http.HandleFunc("/api/portfolio/frontier", apiportfolio.HandleFrontier)

	fmt.Println("API server starting on :8080...")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - POST /api/assistant/chat")
	fmt.Println("  - POST /api/assistant/chat/stream")
	fmt.Println("  - POST /api/assistant/interpret")
	fmt.Println("  - POST /api/assistant/timing")
	fmt.Println("  - POST /api/valuation/dcf")
	fmt.Println("  - POST /api/valuation/sensitivity")
	fmt.Println("  - POST /api/valuation/montecarlo")
	fmt.Println("  - GET  /api/valuation/scenarios")
	fmt.Println("  - GET  /api/marketdata/tickers")
	fmt.Println("  - GET  /api/marketdata/history")
	fmt.Println("  - GET  /api/marketdata/quote")
	fmt.Println("  - POST /api/portfolio/optimize")
	fmt.Println("  - POST /api/portfolio/frontier")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

// seedKnowledge indexes the loaded price series so the assistant can
// answer "what was the last close" style questions with citations.
func seedKnowledge(kb knowledge.Store, series map[string]*marketdata.Series) {
	for ticker, s := range series {
		asset := knowledge.NewAsset(ticker+" price history", knowledge.AssetCSV, "")
		asset.Ticker = ticker
		if len(s.Bars) > 0 {
			first := s.Bars[0]
			last := s.Bars[len(s.Bars)-1]
			asset.AddChunk(knowledge.Chunk{
				Type: knowledge.ChunkTable,
				Content: fmt.Sprintf("%s price history: %d trading days from %s to %s, last close %.2f",
					ticker, len(s.Bars),
					first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"),
					last.Close),
				Section: "Market Data",
			})
		}
		if err := kb.CreateAsset(asset); err != nil {
			fmt.Printf("[WARNING] Failed to index %s: %v\n", ticker, err)
			continue
		}
		asset.MarkAsProcessed()
	}
}
