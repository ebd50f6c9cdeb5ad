package scoring

// MaxScores computes the maximum total score, the maximum score visible
// before results are released and the scoreboard column headers.
func MaxScores(params []SubtaskParam, public map[string]bool) MaxScoreInfo {
	info := MaxScoreInfo{
		Headers: make([]string, 0, len(params)),
	}
	for i, p := range params {
		info.Total += p.MaxScore
		if allPublic(p.TestcaseCodes, public) {
			info.Public += p.MaxScore
		}
		info.Headers = append(info.Headers, subtaskHeader(i+1, p.MaxScore))
	}
	return info
}

func allPublic(codes []string, public map[string]bool) bool {
	for _, code := range codes {
		if !public[code] {
			return false
		}
	}
	return true
}
