package hyperliquid

import (
	"context"
	"encoding/json"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/types"
)

// batchTask is one pending chunk of addresses on the work stack.
type batchTask struct {
	addrs []types.Address
	top   bool // part of the initial partition, logged as progress
}

// BatchClearinghouseStates fetches account states for many addresses
// via batched requests, adapting to an upstream that intermittently
// rejects large batches.
//
// Each chunk is requested as one batch. A response that is a list
// matching the chunk element-for-element pairs each address with its
// result; malformed individual elements count as per-address failures,
// not chunk failures. A missing or length-mismatched response splits
// the chunk in half and requeues both halves, down to minBatchSize, at
// which point each address is fetched individually. Splitting is
// iterative over an explicit work stack, so depth is never a concern.
//
// Returns the address-to-state map plus a deduplicated list of
// addresses that never succeeded via any path.
func (c *Client) BatchClearinghouseStates(
	ctx context.Context,
	addrs []types.Address,
	batchSize int,
	minBatchSize int,
) (map[types.Address]*ClearinghouseState, []types.Address) {
	logger := logging.FromContext(ctx)

	if batchSize < 1 {
		batchSize = 1
	}
	if minBatchSize < 1 {
		minBatchSize = 1
	}

	states := make(map[types.Address]*ClearinghouseState, len(addrs))
	var failed []types.Address

	// Seed the stack with the initial partition, reversed so chunks pop
	// in input order
	var stack []batchTask
	var parts [][]types.Address
	for i := 0; i < len(addrs); i += batchSize {
		end := i + batchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		parts = append(parts, addrs[i:end])
	}
	total := len(parts)
	for i := len(parts) - 1; i >= 0; i-- {
		stack = append(stack, batchTask{addrs: parts[i], top: true})
	}

	processed := 0
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		part := task.addrs

		if len(part) == 0 {
			continue
		}
		if ctx.Err() != nil {
			failed = append(failed, part...)
			continue
		}

		if task.top {
			processed++
			logger.WithFields(map[string]interface{}{
				"chunk": processed,
				"total": total,
				"size":  len(part),
			}).Debug("Fetching clearinghouse state batch")
		}

		users := make([]string, len(part))
		for i, a := range part {
			users[i] = a.String()
		}

		raw, ok := c.postInfo(ctx, map[string]interface{}{
			"type":  "batchClearinghouseStates",
			"users": users,
			"dex":   "",
		})

		if ok {
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err == nil && len(elems) == len(part) {
				for i, elem := range elems {
					var state ClearinghouseState
					if err := json.Unmarshal(elem, &state); err != nil || !isObject(elem) {
						logger.WithError(errors.NewMalformedStateError(part[i].String())).Warn("Discarding malformed state element")
						failed = append(failed, part[i])
						continue
					}
					states[part[i]] = &state
				}
				continue
			}
		}

		// Split and requeue smaller halves
		if len(part) > minBatchSize {
			mid := len(part) / 2
			// Right half pushed first so the left half pops next
			stack = append(stack, batchTask{addrs: part[mid:]})
			stack = append(stack, batchTask{addrs: part[:mid]})
			continue
		}

		// Smallest chunk still failing: per-address fallback
		for _, addr := range part {
			if state, ok := c.ClearinghouseState(ctx, addr); ok {
				states[addr] = state
			} else {
				logger.WithError(errors.NewFetchExhaustedError(addr.String())).Warn("Address state unavailable after fallback")
				failed = append(failed, addr)
			}
		}
	}

	// Exclude addresses that later succeeded and deduplicate
	final := make([]types.Address, 0, len(failed))
	seen := make(map[types.Address]struct{}, len(failed))
	for _, addr := range failed {
		if _, ok := states[addr]; ok {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		final = append(final, addr)
	}

	return states, final
}

// isObject reports whether a raw JSON value is an object.
func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b == '{'
		}
	}
	return false
}
