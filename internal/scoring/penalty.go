package scoring

import (
	"strconv"

	"videoscore-admin/internal/models"
)

// penaltyTiers 是單一紅旗 low/mid/high 三檔的扣分。
type penaltyTiers struct {
	low, mid, high int
}

func (t penaltyTiers) forSeverity(s models.Severity) int {
	switch s {
	case models.SeverityLow:
		return t.low
	case models.SeverityMid:
		return t.mid
	case models.SeverityHigh:
		return t.high
	default:
		return 0
	}
}

// 五個紅旗各自的三檔扣分表。
var redFlagPenalties = map[string]penaltyTiers{
	models.FlagUnfairComparison: {-10, -15, -20},
	models.FlagMedicalClaims:    {-15, -20, -30},
	models.FlagNoLiveFootage:    {-10, -15, -20},
	models.FlagComplianceRisk:   {-10, -20, -30},
	models.FlagAdvertisingNoise: {-5, -10, -15},
}

// 部分紅旗附帶最終得分硬性封頂；廣告感過重只扣分、不封頂。
var redFlagCaps = map[string]int{
	models.FlagUnfairComparison: 60,
	models.FlagMedicalClaims:    50,
	models.FlagNoLiveFootage:    60,
	models.FlagComplianceRisk:   50,
}

// noCapApplied 表示沒有任何封頂生效。
const noCapApplied = 100

// ApplyPenalties 對融合前分套用紅旗扣分與封頂，產出最終得分。
// 多旗並發時扣分相加、封頂取最嚴格（最小）者。
// 融合前分缺席時最終得分同樣缺席——缺席不會被補零後再扣分。
// 回傳的軌跡記錄每一筆具名的扣分與封頂。
func ApplyPenalties(fused *int, flags map[string]RedFlagSignal, trace models.ScoringTrace) (penaltyTotal, capApplied int, final *int, outTrace models.ScoringTrace) {
	capApplied = noCapApplied
	outTrace = trace

	for _, name := range models.RedFlagNames {
		flag, ok := flags[name]
		if !ok || !flag.Hit {
			continue
		}
		penalty := redFlagPenalties[name].forSeverity(flag.Severity)
		if penalty != 0 {
			penaltyTotal += penalty
			outTrace = outTrace.Add("penalty", name, penalty, "严重度 "+flag.Severity.String())
		}
		if cap, hasCap := redFlagCaps[name]; hasCap {
			if cap < capApplied {
				capApplied = cap
			}
			outTrace = outTrace.Add("cap", name, 0, "封顶 "+strconv.Itoa(cap))
		}
	}

	if fused != nil {
		v := clampScore(*fused + penaltyTotal)
		if v > capApplied {
			v = capApplied
		}
		final = &v
	}
	return penaltyTotal, capApplied, final, outTrace
}
