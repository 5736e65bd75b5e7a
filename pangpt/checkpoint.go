package pangpt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Checkpoint is the single serialized record persisted after each improved
// epoch. Checksum covers the model and optimizer payloads so a torn or
// corrupted file is detected instead of loaded.
type Checkpoint struct {
	Epoch          int     `json:"epoch"`
	ModelState     []byte  `json:"model_state"`
	OptimizerState []byte  `json:"optimizer_state"`
	Loss           float64 `json:"loss"`
	Checksum       uint64  `json:"checksum"`
}

func checkpointChecksum(modelState, optimizerState []byte) uint64 {
	h := xxhash.New()
	h.Write(modelState)
	h.Write(optimizerState)
	return h.Sum64()
}

// SaveCheckpoint serializes the model and optimizer state atomically to
// path. The record is written to a temporary file and renamed, so readers
// never observe a partial checkpoint.
func SaveCheckpoint(model Model, optimizer Optimizer, epoch int, loss float64, path string) error {
	modelState, err := model.StateDict()
	if err != nil {
		return fmt.Errorf("failed to serialize model state: %w", err)
	}
	optState, err := optimizer.StateDict()
	if err != nil {
		return fmt.Errorf("failed to serialize optimizer state: %w", err)
	}

	ckpt := Checkpoint{
		Epoch:          epoch,
		ModelState:     modelState,
		OptimizerState: optState,
		Loss:           loss,
		Checksum:       checkpointChecksum(modelState, optState),
	}

	data, err := json.Marshal(&ckpt)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint to %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize checkpoint %q: %w", path, err)
	}
	return nil
}

// LoadCheckpoint restores model and optimizer state from path and returns
// the epoch to resume from plus whether a checkpoint was loaded. With
// restart set, any existing file is ignored and training starts from epoch
// zero. A missing file, a corrupt record, or a model shape mismatch all
// report and return (0, false) rather than failing the run.
func LoadCheckpoint(model Model, optimizer Optimizer, path string, restart bool, logf func(format string, v ...any)) (int, bool) {
	if restart {
		logf("Restarting training, overwriting existing checkpoint.")
		return 0, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logf("No checkpoint found. Starting from scratch.")
		} else {
			logf("Error reading checkpoint from %q: %v", path, err)
		}
		return 0, false
	}

	var ckpt Checkpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		logf("Error loading checkpoint from %q: %v", path, err)
		return 0, false
	}

	if checkpointChecksum(ckpt.ModelState, ckpt.OptimizerState) != ckpt.Checksum {
		logf("Error: checkpoint %q failed checksum verification.", path)
		return 0, false
	}

	if err := model.LoadStateDict(ckpt.ModelState); err != nil {
		if errors.Is(err, ErrShapeMismatch) {
			logf("Error: Checkpoint and current model do not match in size.")
		} else {
			logf("Error loading checkpoint from %q: %v", path, err)
		}
		return 0, false
	}
	if err := optimizer.LoadStateDict(ckpt.OptimizerState); err != nil {
		logf("Error loading optimizer state from %q: %v", path, err)
		return 0, false
	}

	start := ckpt.Epoch + 1
	logf("Checkpoint loaded. Resuming training from epoch %d", start)
	return start, true
}
