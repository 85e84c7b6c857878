package metrics

import (
	"fmt"

	"github.com/botarena/botarena/pkg/types"
)

// DecideWinner evaluates the round metrics against the win conditions.
// Rules are ordered; the first match wins:
//
//  1. bot extraction above the red threshold - attacker wins
//  2. bot suppression above the blue threshold with the false-positive
//     constraint held - detector wins
//  3. otherwise a draw
func DecideWinner(m types.RoundMetrics, wc types.WinConditions) types.Verdict {
	if m.BotExtractionRate > wc.RedWinThreshold {
		return types.Verdict{
			Winner: types.WinnerRed,
			Reason: fmt.Sprintf("bots extracted %.1f%% of targeted content (threshold %.1f%%)",
				m.BotExtractionRate*100, wc.RedWinThreshold*100),
		}
	}
	if m.BotSuppressionRate > wc.BlueWinThreshold && m.FalsePositiveRate <= wc.FPRThreshold {
		return types.Verdict{
			Winner: types.WinnerBlue,
			Reason: fmt.Sprintf("bots suppressed to %.1f%% with %.1f%% false positives (limits %.1f%%, %.1f%%)",
				m.BotSuppressionRate*100, m.FalsePositiveRate*100,
				wc.BlueWinThreshold*100, wc.FPRThreshold*100),
		}
	}
	return types.Verdict{
		Winner: types.WinnerDraw,
		Reason: fmt.Sprintf("no decisive result: extraction %.1f%%, suppression %.1f%%, false positives %.1f%%",
			m.BotExtractionRate*100, m.BotSuppressionRate*100, m.FalsePositiveRate*100),
	}
}
