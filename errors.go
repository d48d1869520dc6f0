package transcript

import (
	xerrors "github.com/lifetrace/transcript/internal/errors"
)

// IsIrrecoverableExtraction reports whether an error delivered to an
// OnError observer was a client-side failure (4xx, malformed body) that
// skipped the retry budget, as opposed to a transient network failure.
// Either way the worker has already recovered via the local fallback; this
// exists so telemetry can distinguish the two.
func IsIrrecoverableExtraction(err error) bool {
	return xerrors.IsIrrecoverable(err)
}
