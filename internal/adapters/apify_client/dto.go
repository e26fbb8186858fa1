package apify_client

// runResponse - ответ на запуск актора и на запрос состояния запуска
type runResponse struct {
	Data runDTO `json:"data"`
}

type runDTO struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Статусы запуска
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusAborted   = "ABORTED"
	statusTimedOut  = "TIMED-OUT"
)

func isTerminal(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusAborted, statusTimedOut:
		return true
	}
	return false
}
