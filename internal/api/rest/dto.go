package rest

import "github.com/Alias1177/WinGoTrader/models"

type createSessionRequest struct {
	Game models.Game `json:"game"`
	Live bool        `json:"live"` // follow the history feed
}

type startRequest struct {
	Period int64 `json:"period"`
}

// appendRequest takes either typed digits ("2378", "2 3 7 8") or a list of outcomes.
type appendRequest struct {
	Digits   string `json:"digits"`
	Outcomes []int  `json:"outcomes"`
}

type editRequest struct {
	Outcome *int `json:"outcome"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
