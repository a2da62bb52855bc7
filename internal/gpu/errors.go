package gpu

import "fmt"

// InitError wraps a failure to acquire an adapter/device or to build the
// fixed render pipeline. Callers should treat it as fatal: there is no
// meaningful way to run the simulation without a GPU pipeline.
type InitError struct {
	Stage string
	Cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("gpu: init failed at %s: %v", e.Stage, e.Cause)
}

func (e *InitError) Unwrap() error { return e.Cause }

// UploadError wraps a failure writing CPU bytes into a texture.
type UploadError struct {
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("gpu: upload failed: %v", e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }

// DownloadError wraps a failure reading a texture back into CPU bytes,
// including a readback buffer that never signals mapped.
type DownloadError struct {
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("gpu: download failed: %v", e.Cause)
}

func (e *DownloadError) Unwrap() error { return e.Cause }
