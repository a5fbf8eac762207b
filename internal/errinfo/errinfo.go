package errinfo

// ErrorInfo is the structured error carried in the data field of a failed
// bridge response. Detail becomes the response's error string.
type ErrorInfo struct {
	ErrorCode string   `json:"error_code"`
	Phase     string   `json:"phase,omitempty"`
	Retryable bool     `json:"retryable"`
	Actions   []string `json:"actions,omitempty"`
	Model     string   `json:"model,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.ErrorCode
	}
	return e.Detail
}

const (
	CodeEngineUnavailable   = "ENGINE_UNAVAILABLE"
	CodeEngineCreateFailed  = "ENGINE_CREATE_FAILED"
	CodeProviderAuthFailed  = "PROVIDER_AUTH_FAILED"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeNetworkUnavailable  = "NETWORK_UNAVAILABLE"
	CodeEgressBlocked       = "EGRESS_BLOCKED_BY_POLICY"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeUserCanceled        = "USER_CANCELED"
	CodeBridgeTimeout       = "BRIDGE_TIMEOUT"
	CodeBridgeClosed        = "BRIDGE_CLOSED"
	CodeInternal            = "INTERNAL_ERROR"
)

const (
	ActionRetry        = "retry"
	ActionOpenSettings = "open_settings"
)

const (
	PhaseWarmup    = "warmup"
	PhaseEnsure    = "ensure"
	PhaseDispose   = "dispose"
	PhaseWrite     = "write"
	PhaseRewrite   = "rewrite"
	PhaseProofread = "proofread"
	PhaseStatus    = "status"
)

func EngineUnavailable(phase, model, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEngineUnavailable,
		Phase:     phase,
		Retryable: false,
		Model:     model,
		Detail:    detail,
	}
}

func EngineCreateFailed(phase, model, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEngineCreateFailed,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Model:     model,
		Detail:    detail,
	}
}

func ProviderAuthFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderAuthFailed,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
		Detail:    detail,
	}
}

func ProviderUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func NetworkUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNetworkUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func EgressBlocked(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEgressBlocked,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
		Detail:    detail,
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func UserCanceled(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeUserCanceled,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func Internal(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInternal,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}
