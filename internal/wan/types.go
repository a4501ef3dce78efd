// Package wan provides an HTTP client for the DashScope Wan 2.2 video-synthesis API,
// together with the pure helpers that turn a user request into the provider payload.
package wan

// Mode selects text-to-video or image-to-video synthesis.
type Mode string

// Supported generation modes.
const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// IsValid returns true if the mode is one of the supported modes.
func (m Mode) IsValid() bool {
	return m == ModeText || m == ModeImage
}

// Resolution is the output resolution tier requested by the user.
type Resolution string

// Known resolution tiers.
const (
	Resolution480P  Resolution = "480P"
	Resolution1080P Resolution = "1080P"
)

// AspectRatio is the requested frame ratio. It only applies to text mode.
type AspectRatio string

// Known aspect ratios.
const (
	Ratio16x9 AspectRatio = "16:9"
	Ratio9x16 AspectRatio = "9:16"
	Ratio1x1  AspectRatio = "1:1"
	Ratio4x3  AspectRatio = "4:3"
	Ratio3x4  AspectRatio = "3:4"
)

// Provider model identifiers, one per mode.
const (
	ModelTextToVideo  = "wan2.2-t2v-plus"
	ModelImageToVideo = "wan2.2-i2v-plus"
)

// Input limits applied by BuildPayload.
const (
	MaxPromptLength         = 800
	MaxNegativePromptLength = 500
)

// TaskStatus is the raw task_status string reported by DashScope.
type TaskStatus string

// DashScope task statuses. Anything other than SUCCEEDED or FAILED is in progress.
const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskSucceeded TaskStatus = "SUCCEEDED"
	TaskFailed    TaskStatus = "FAILED"
	TaskCanceled  TaskStatus = "CANCELED"
)

// GenerationRequest is a single user action asking for a video.
type GenerationRequest struct {
	Mode           Mode
	Prompt         string
	NegativePrompt string
	Resolution     Resolution
	AspectRatio    AspectRatio // text mode only
	ImageURL       string      // image mode only
	UserID         string      // opaque, passed through for the caller's bookkeeping
}

// TaskHandle identifies a submitted task. At least one field is set after a
// successful Submit. Handles are values and are never mutated.
type TaskHandle struct {
	TaskID  string `json:"taskId,omitempty"`
	PollURL string `json:"pollUrl,omitempty"`
}

// IsZero reports whether the handle carries neither a task id nor a poll URL.
func (h TaskHandle) IsZero() bool {
	return h.TaskID == "" && h.PollURL == ""
}

// Payload is the task-creation body sent to the video-synthesis endpoint.
type Payload struct {
	Model      string     `json:"model"`
	Input      Input      `json:"input"`
	Parameters Parameters `json:"parameters"`
}

// Input is the input section of a task-creation payload.
// Empty optional fields are omitted from the wire rather than sent as "".
type Input struct {
	Prompt         string `json:"prompt,omitempty"`
	ImgURL         string `json:"img_url,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// Parameters is the parameters section of a task-creation payload.
// Text mode sets Size, image mode sets Resolution.
type Parameters struct {
	Size         string `json:"size,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	PromptExtend bool   `json:"prompt_extend"`
	Watermark    bool   `json:"watermark"`
}

// PollResult contains the provider's view of a task after one status check.
type PollResult struct {
	TaskID   string
	Status   TaskStatus
	VideoURL string
	// Message is the provider's explanation, output-level first, then top-level.
	Message string
}

// createTaskResponse represents the response from the video-synthesis endpoint.
type createTaskResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Output    struct {
		TaskID     string `json:"task_id,omitempty"`
		TaskStatus string `json:"task_status,omitempty"`
		ResultURL  string `json:"result_url,omitempty"`
	} `json:"output"`
}

// taskStatusResponse represents the response from the task status endpoint.
type taskStatusResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Output    struct {
		TaskID     string `json:"task_id,omitempty"`
		TaskStatus string `json:"task_status,omitempty"`
		VideoURL   string `json:"video_url,omitempty"`
		Code       string `json:"code,omitempty"`
		Message    string `json:"message,omitempty"`
	} `json:"output"`
}
