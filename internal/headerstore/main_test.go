package headerstore

import "github.com/DanielSidhion/kaliko/internal/logging"

// Several code paths under test (ingest's reject-and-log branches) call the
// package-level logging functions, which panic if Init was never called.
func init() {
	_ = logging.Init(logging.Config{Level: "error"})
}
