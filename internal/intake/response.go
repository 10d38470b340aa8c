package intake

import "net/http"

// Fixed messages returned to callers.
const (
	MsgServiceUp          = "Service is up"
	MsgInvalidBody        = "Invalid request body"
	MsgNotificationFailed = "Failed to send email notification"
	MsgInternalError      = "Internal server error"
)

// Outcome is the terminal state of a handled submission.
type Outcome string

const (
	RespondedSuccess     Outcome = "success"
	RespondedClientError Outcome = "client_error"
	RespondedServerError Outcome = "server_error"
)

// Response is the JSON body sent for every request. Failures carry the status
// the caller should act on; the transport status itself is always 200.
type Response struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Reply pairs a response body with the outcome that produced it.
type Reply struct {
	Outcome Outcome
	Body    Response
}

func success() Reply {
	return Reply{Outcome: RespondedSuccess, Body: Response{OK: true}}
}

func clientError(reason string) Reply {
	return Reply{
		Outcome: RespondedClientError,
		Body:    Response{OK: false, Error: reason, StatusCode: http.StatusBadRequest},
	}
}

func serverError(message string) Reply {
	return Reply{
		Outcome: RespondedServerError,
		Body:    Response{OK: false, Error: message, StatusCode: http.StatusInternalServerError},
	}
}

// Liveness is the body returned for GET requests.
func Liveness() Response {
	return Response{OK: true, Message: MsgServiceUp}
}
