package mocks

// Provider-shaped response fixtures shared across tests.

// MockTickerListing mirrors the upstream full-listing format consumed by
// the identifier mapping refresh.
func MockTickerListing() *MockResponse {
	return &MockResponse{
		StatusCode: 200,
		Body: map[string]interface{}{
			"0": map[string]interface{}{"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
			"1": map[string]interface{}{"cik_str": 789019, "ticker": "MSFT", "title": "Microsoft Corp"},
			"2": map[string]interface{}{"cik_str": 1018724, "ticker": "AMZN", "title": "Amazon.com Inc"},
		},
	}
}

// MockSubmissionsResponse mirrors the filings-archive submissions payload
// with its parallel arrays.
func MockSubmissionsResponse() *MockResponse {
	return &MockResponse{
		StatusCode: 200,
		Body: map[string]interface{}{
			"cik":  "320193",
			"name": "Apple Inc.",
			"filings": map[string]interface{}{
				"recent": map[string]interface{}{
					"accessionNumber": []string{"0000320193-24-000123", "0000320193-24-000081"},
					"form":            []string{"10-K", "10-Q"},
					"filingDate":      []string{"2024-11-01", "2024-08-02"},
					"reportDate":      []string{"2024-09-28", "2024-06-29"},
					"primaryDocument": []string{"aapl-20240928.htm", "aapl-20240629.htm"},
				},
			},
		},
	}
}

// MockQuoteResponse mirrors the market-data quote payload.
func MockQuoteResponse(symbol string, price float64) *MockResponse {
	return &MockResponse{
		StatusCode: 200,
		Body: map[string]interface{}{
			"symbol":         symbol,
			"price":          price,
			"open":           price * 0.99,
			"high":           price * 1.01,
			"low":            price * 0.98,
			"previous_close": price * 0.995,
			"volume":         1234567,
			"trading_day":    "2026-08-27",
		},
	}
}

// MockTokenResponse mirrors a successful authorization-code exchange.
func MockTokenResponse(token string, expiresIn int) *MockResponse {
	return &MockResponse{
		StatusCode: 200,
		Body: map[string]interface{}{
			"access_token": token,
			"expires_in":   expiresIn,
		},
	}
}

// MockErrorResponse creates an error response with the given status.
func MockErrorResponse(statusCode int, message string) *MockResponse {
	return &MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "error",
			},
		},
	}
}

// MockRateLimitResponse creates a 429 response.
func MockRateLimitResponse() *MockResponse {
	return MockErrorResponse(429, "Rate limit exceeded")
}
