package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/models"
)

func TestApplyPenaltiesNoFlags(t *testing.T) {
	penalty, capApplied, final, _ := ApplyPenalties(intPtr(85), nil, models.ScoringTrace{})
	assert.Zero(t, penalty)
	assert.Equal(t, 100, capApplied)
	require.NotNil(t, final)
	assert.Equal(t, 85, *final)
}

func TestApplyPenaltiesMedicalHighCaps(t *testing.T) {
	flags := map[string]RedFlagSignal{
		models.FlagMedicalClaims: {Hit: true, Severity: models.SeverityHigh},
	}
	penalty, capApplied, final, trace := ApplyPenalties(intPtr(100), flags, models.ScoringTrace{})
	assert.Equal(t, -30, penalty)
	assert.Equal(t, 50, capApplied)
	require.NotNil(t, final)
	// 100-30=70，再被封顶压到 50
	assert.Equal(t, 50, *final)
	assert.NotEmpty(t, trace.Entries)
}

func TestApplyPenaltiesMultipleFlagsSumAndMinCap(t *testing.T) {
	flags := map[string]RedFlagSignal{
		models.FlagUnfairComparison: {Hit: true, Severity: models.SeverityLow},  // -10，封顶 60
		models.FlagComplianceRisk:   {Hit: true, Severity: models.SeverityMid},  // -20，封顶 50
		models.FlagAdvertisingNoise: {Hit: true, Severity: models.SeverityHigh}, // -15，无封顶
	}
	penalty, capApplied, final, _ := ApplyPenalties(intPtr(90), flags, models.ScoringTrace{})
	assert.Equal(t, -45, penalty)
	assert.Equal(t, 50, capApplied) // 多旗并发取最严格封顶
	require.NotNil(t, final)
	assert.Equal(t, 45, *final) // 90-45=45，低于封顶
}

func TestApplyPenaltiesUnknownSeverityStillCaps(t *testing.T) {
	// 严重度无法辨识时不扣分，但命中本身仍触发封顶
	flags := map[string]RedFlagSignal{
		models.FlagNoLiveFootage: {Hit: true, Severity: models.SeverityUnknown},
	}
	penalty, capApplied, final, _ := ApplyPenalties(intPtr(95), flags, models.ScoringTrace{})
	assert.Zero(t, penalty)
	assert.Equal(t, 60, capApplied)
	require.NotNil(t, final)
	assert.Equal(t, 60, *final)
}

func TestApplyPenaltiesUnhitFlagIgnored(t *testing.T) {
	flags := map[string]RedFlagSignal{
		models.FlagMedicalClaims: {Hit: false, Severity: models.SeverityHigh},
	}
	penalty, capApplied, final, _ := ApplyPenalties(intPtr(80), flags, models.ScoringTrace{})
	assert.Zero(t, penalty)
	assert.Equal(t, 100, capApplied)
	require.NotNil(t, final)
	assert.Equal(t, 80, *final)
}

func TestApplyPenaltiesAbsentFusedStaysAbsent(t *testing.T) {
	flags := map[string]RedFlagSignal{
		models.FlagMedicalClaims: {Hit: true, Severity: models.SeverityHigh},
	}
	penalty, capApplied, final, _ := ApplyPenalties(nil, flags, models.ScoringTrace{})
	assert.Equal(t, -30, penalty)
	assert.Equal(t, 50, capApplied)
	assert.Nil(t, final)
}

func TestApplyPenaltiesFloorAtZero(t *testing.T) {
	flags := map[string]RedFlagSignal{
		models.FlagMedicalClaims:  {Hit: true, Severity: models.SeverityHigh}, // -30
		models.FlagComplianceRisk: {Hit: true, Severity: models.SeverityHigh}, // -30
	}
	_, _, final, _ := ApplyPenalties(intPtr(20), flags, models.ScoringTrace{})
	require.NotNil(t, final)
	assert.Equal(t, 0, *final)
}

// 任意严重度组合下最终得分都必须落在 [0, 封顶] 区间内。
func TestApplyPenaltiesBoundedOverSeverityGrid(t *testing.T) {
	severities := []models.Severity{
		models.SeverityUnknown, models.SeverityLow, models.SeverityMid, models.SeverityHigh,
	}
	for _, s1 := range severities {
		for _, s2 := range severities {
			for _, s3 := range severities {
				flags := map[string]RedFlagSignal{
					models.FlagUnfairComparison: {Hit: true, Severity: s1},
					models.FlagNoLiveFootage:    {Hit: true, Severity: s2},
					models.FlagAdvertisingNoise: {Hit: true, Severity: s3},
				}
				_, capApplied, final, _ := ApplyPenalties(intPtr(100), flags, models.ScoringTrace{})
				require.NotNil(t, final)
				assert.GreaterOrEqual(t, *final, 0)
				assert.LessOrEqual(t, *final, capApplied)
			}
		}
	}
}
