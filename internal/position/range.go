package position

import "fmt"

// BlockRange is an inclusive block window for one eth_getLogs request.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts [from, to] into windows of at most chunkSize blocks, since most RPC
// providers cap the span of a single log query.
func SplitRange(from, to, chunkSize uint64) ([]BlockRange, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d is before from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/chunkSize+1)
	for start := from; ; {
		end := to
		if to-start >= chunkSize {
			end = start + chunkSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// StartBlock is the first block of a scan that looks back lookback blocks from latest.
func StartBlock(latest, lookback uint64) uint64 {
	if lookback >= latest {
		return 0
	}
	return latest - lookback
}
