package capture

// point is a pointer position in page coordinates.
type point struct {
	x, y int
}

// shouldRecordMove decides whether a pointer move is far enough in time and
// space from the last recorded move to be kept.
func shouldRecordMove(elapsedMs int64, last, current point, opts Options) bool {
	if elapsedMs < opts.MouseMoveElapsedMsThreshold {
		return false
	}
	return absDiff(last.x, current.x) > opts.MouseMoveThreshold ||
		absDiff(last.y, current.y) > opts.MouseMoveThreshold
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
