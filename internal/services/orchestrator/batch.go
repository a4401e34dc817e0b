package orchestrator

import "github.com/LeonardoBeccarini/cropwatch/internal/model/entities"

// partition splits farms into consecutive batches of at most size, keeping order.
func partition(farms []entities.Farm, size int) [][]entities.Farm {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]entities.Farm, 0, (len(farms)+size-1)/size)
	for start := 0; start < len(farms); start += size {
		end := start + size
		if end > len(farms) {
			end = len(farms)
		}
		out = append(out, farms[start:end:end])
	}
	return out
}
