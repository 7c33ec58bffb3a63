package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Market data
	mux.HandleFunc("/api/stocks/search", s.app.StocksHandler.Search)
	mux.HandleFunc("/api/stocks/quote", s.app.StocksHandler.Quote)
	mux.HandleFunc("/api/stocks/history", s.app.StocksHandler.History)

	// AI analysis
	mux.HandleFunc("/api/ai/sentiment", s.app.SentimentHandler.ServeHTTP)
	mux.HandleFunc("/api/strategies", s.app.StrategiesHandler.ServeHTTP)

	// Portfolio state
	mux.HandleFunc("/api/portfolio", s.app.PortfolioHandler.List)
	mux.HandleFunc("/api/portfolio/add", s.app.PortfolioHandler.Add)
	mux.HandleFunc("/api/portfolio/remove", s.app.PortfolioHandler.Remove)
	mux.HandleFunc("/api/portfolio/analyze", s.app.PortfolioHandler.AnalyzeAll)

	// Remote record store
	mux.HandleFunc("/api/sheets/read", s.app.SheetsHandler.Read)
	mux.HandleFunc("/api/sheets/sync", s.app.SheetsHandler.Sync)
	mux.HandleFunc("/api/auth/logout", s.app.SessionHandler.ServeHTTP)

	// Operational
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
