package reports

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"claritybackend/models"
	"claritybackend/utils"
)

const (
	// maxScore is the communication score for a window with no flagged messages.
	maxScore = 100
	// trendDeadbandPercent treats small count swings as stable so trends do
	// not flap on noise. Symmetric: +5% and -5% classify the same way.
	trendDeadbandPercent = 5.0
	// scoreTrendDeadband is the score-delta band labeled "steady".
	scoreTrendDeadband = 2
	// maxPartners caps the ranked partner list to keep the report readable.
	maxPartners = 6
	// maxExamples caps the surfaced message examples.
	maxExamples = 10
	// exampleTextLimit truncates example message text.
	exampleTextLimit = 180
)

// ReportInput is everything BuildReport needs. Instances carry only flagged
// messages; TotalMessages counts every analyzed message in the window.
// Previous holds up to the two most recent prior reports, newest first.
// Upstream is the optional LLM-generated partial payload; every field it may
// fail to supply has a local-computation fallback.
type ReportInput struct {
	WorkspaceID   string
	SlackUserID   string
	Period        models.ReportPeriod
	PeriodStart   time.Time
	PeriodEnd     time.Time
	TotalMessages int
	Instances     []*models.AnalysisInstance
	Flags         []models.FlagDefinition
	Upstream      *UpstreamReportPayload
	Previous      []*models.Report
}

// BuiltReport is the aggregation result before persistence: the header score
// fields plus the full data payload.
type BuiltReport struct {
	Score         int
	PreviousScore *int
	ScoreChange   int
	ScoreTrend    string
	Data          models.ReportData
}

// BuildReport turns a window of analysis instances plus previous report
// snapshots into a complete report payload. Pure: no storage access, no
// clock reads. It returns an error only for contract violations; missing or
// malformed optional upstream data always degrades to local computation.
func BuildReport(in ReportInput) (*BuiltReport, error) {
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, fmt.Errorf("period end %s must be after period start %s", in.PeriodEnd, in.PeriodStart)
	}
	if in.TotalMessages < 0 {
		return nil, fmt.Errorf("total messages cannot be negative: %d", in.TotalMessages)
	}
	for _, instance := range in.Instances {
		if instance == nil {
			return nil, fmt.Errorf("instances must not contain nil entries")
		}
	}

	flags := in.Flags
	if len(flags) == 0 {
		flags = models.DefaultCoachingFlags()
	}

	totalMessages := in.TotalMessages
	if totalMessages < len(in.Instances) {
		// The activity counter missed messages; the flagged count is a floor.
		totalMessages = len(in.Instances)
	}

	score := communicationScore(totalMessages, in.Instances, flags)
	previousScore, scoreChange, scoreTrend := scoreDelta(score, in.Previous)

	breakdown := flagBreakdown(in.Instances, flags)
	trends := computeTrends(breakdown, flags, in.Previous)
	partners := partnerAnalysis(in.Instances, in.Previous)
	normalized := NormalizeUpstream(in.Upstream)
	examples := selectExamples(in.Instances, flags, normalized.RankedExamples)
	charts := buildChartMetadata(in, score, breakdown)

	data := models.ReportData{
		TotalMessages:   totalMessages,
		FlaggedMessages: len(in.Instances),
		FlagBreakdown:   breakdown,
		Trends:          trends,
		PartnerAnalysis: partners,
		ChartMetadata:   charts,
		MessageExamples: examples,
		Recommendations: normalized.Recommendations,
		Insights:        normalized.Insights,
		Achievements:    normalized.Achievements,
	}

	if len(data.Recommendations) == 0 {
		data.Recommendations = localRecommendations(breakdown)
	}
	if len(data.Insights) == 0 {
		data.Insights = localInsights(score, len(in.Instances), totalMessages)
	}
	if len(data.Achievements) == 0 {
		data.Achievements = localAchievements(score, scoreChange, len(in.Instances))
	}

	return &BuiltReport{
		Score:         score,
		PreviousScore: previousScore,
		ScoreChange:   scoreChange,
		ScoreTrend:    scoreTrend,
		Data:          data,
	}, nil
}

// communicationScore maps the severity-weighted flag mix onto 0-100. Each
// flagged message contributes a penalty capped at 1.0 (the weight sum of its
// flags), so adding a flag to a message never raises the score and a window
// with no flags scores the maximum.
func communicationScore(totalMessages int, instances []*models.AnalysisInstance, flags []models.FlagDefinition) int {
	if len(instances) == 0 {
		return maxScore
	}
	utils.AssertInvariant(totalMessages > 0, "total messages must be positive when instances exist")

	var penalty float64
	for _, instance := range instances {
		penalty += messagePenalty(instance, flags)
	}

	score := int(math.Round(maxScore * (1 - penalty/float64(totalMessages))))
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// messagePenalty is the summed severity of one message's flags, capped at 1.0.
func messagePenalty(instance *models.AnalysisInstance, flags []models.FlagDefinition) float64 {
	var sum float64
	for _, flagID := range instance.FlagIDs {
		sum += models.WeightForFlag(flags, int(flagID))
	}
	if sum > 1.0 {
		return 1.0
	}
	return sum
}

// severitySum is the uncapped summed severity, used for example ranking.
func severitySum(instance *models.AnalysisInstance, flags []models.FlagDefinition) float64 {
	var sum float64
	for _, flagID := range instance.FlagIDs {
		sum += models.WeightForFlag(flags, int(flagID))
	}
	return sum
}

func scoreDelta(score int, previous []*models.Report) (*int, int, string) {
	if len(previous) == 0 {
		return nil, 0, models.ScoreTrendSteady
	}

	prev := previous[0].CommunicationScore
	change := score - prev

	trend := models.ScoreTrendSteady
	switch {
	case change > scoreTrendDeadband:
		trend = models.ScoreTrendImproving
	case change < -scoreTrendDeadband:
		trend = models.ScoreTrendDeclining
	}

	return &prev, change, trend
}

// flagBreakdown buckets the window's instances per flag id, sorted by count
// descending. Percentage is relative to the flagged-message count: a message
// carrying several flags lands in several buckets, so bucket percentages may
// sum past 100.
func flagBreakdown(instances []*models.AnalysisInstance, flags []models.FlagDefinition) []models.FlagBreakdownEntry {
	counts := map[int]int{}
	messageIDs := map[int][]string{}

	for _, instance := range instances {
		seen := map[int]bool{}
		for _, rawID := range instance.FlagIDs {
			flagID := int(rawID)
			if seen[flagID] {
				continue
			}
			seen[flagID] = true
			counts[flagID]++
			messageIDs[flagID] = append(messageIDs[flagID], instance.ID)
		}
	}

	entries := make([]models.FlagBreakdownEntry, 0, len(counts))
	flagged := len(instances)
	for flagID, count := range counts {
		percentage := 0.0
		if flagged > 0 {
			percentage = math.Round(float64(count)/float64(flagged)*1000) / 10
		}
		entries = append(entries, models.FlagBreakdownEntry{
			FlagID:     flagID,
			FlagName:   flagName(flags, flagID),
			Count:      count,
			Percentage: percentage,
			MessageIDs: messageIDs[flagID],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].FlagID < entries[j].FlagID
	})

	return entries
}

func flagName(flags []models.FlagDefinition, flagID int) string {
	for _, def := range flags {
		if def.ID == flagID {
			return def.Name
		}
	}
	return fmt.Sprintf("Flag %d", flagID)
}

// computeTrends classifies the per-flag count change versus the immediately
// previous period. The union of flag ids across the current window and the
// two most recent previous reports is considered, so a flag that vanished
// this period still shows as trending down.
func computeTrends(
	current []models.FlagBreakdownEntry,
	flags []models.FlagDefinition,
	previous []*models.Report,
) []models.FlagTrend {
	currentCounts := map[int]int{}
	for _, entry := range current {
		currentCounts[entry.FlagID] = entry.Count
	}

	previousCounts := map[int]int{}
	if len(previous) > 0 {
		for _, entry := range previous[0].Data.FlagBreakdown {
			previousCounts[entry.FlagID] = entry.Count
		}
	}

	flagIDs := map[int]bool{}
	for id := range currentCounts {
		flagIDs[id] = true
	}
	for _, report := range previous {
		for _, entry := range report.Data.FlagBreakdown {
			flagIDs[entry.FlagID] = true
		}
	}

	trends := make([]models.FlagTrend, 0, len(flagIDs))
	for flagID := range flagIDs {
		cur := currentCounts[flagID]
		prev := previousCounts[flagID]
		changePercent := percentChange(prev, cur)
		trends = append(trends, models.FlagTrend{
			FlagID:        flagID,
			FlagName:      flagName(flags, flagID),
			PreviousCount: prev,
			CurrentCount:  cur,
			ChangePercent: changePercent,
			Direction:     classifyTrend(changePercent),
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].CurrentCount != trends[j].CurrentCount {
			return trends[i].CurrentCount > trends[j].CurrentCount
		}
		return trends[i].FlagID < trends[j].FlagID
	})

	return trends
}

func percentChange(prev, cur int) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return math.Round(float64(cur-prev)/float64(prev)*1000) / 10
}

// classifyTrend applies the deadband symmetrically on both sides of zero.
func classifyTrend(changePercent float64) models.TrendDirection {
	switch {
	case changePercent > trendDeadbandPercent:
		return models.TrendUp
	case changePercent < -trendDeadbandPercent:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// partnerAnalysis groups flagged messages by who they were directed at.
// Partners with no identifiable messages or no flags are excluded, and the
// ranked output is capped at maxPartners.
func partnerAnalysis(instances []*models.AnalysisInstance, previous []*models.Report) []models.PartnerSummary {
	messages := map[string]int{}
	flagCounts := map[string]int{}

	for _, instance := range instances {
		for _, target := range instance.TargetIDs {
			if target == "" {
				continue
			}
			messages[target]++
			flagCounts[target] += len(instance.FlagIDs)
		}
	}

	previousFlags := map[string]int{}
	if len(previous) > 0 {
		for _, partner := range previous[0].Data.PartnerAnalysis {
			previousFlags[partner.PartnerID] = partner.FlagCount
		}
	}

	partners := make([]models.PartnerSummary, 0, len(messages))
	for partnerID, exchanged := range messages {
		flagCount := flagCounts[partnerID]
		if exchanged == 0 || flagCount == 0 {
			continue
		}
		trend := models.TrendStable
		if prev, ok := previousFlags[partnerID]; ok {
			trend = classifyTrend(percentChange(prev, flagCount))
		}
		partners = append(partners, models.PartnerSummary{
			PartnerID:         partnerID,
			MessagesExchanged: exchanged,
			FlagCount:         flagCount,
			Trend:             trend,
		})
	}

	sort.Slice(partners, func(i, j int) bool {
		if partners[i].FlagCount != partners[j].FlagCount {
			return partners[i].FlagCount > partners[j].FlagCount
		}
		return partners[i].PartnerID < partners[j].PartnerID
	})

	if len(partners) > maxPartners {
		partners = partners[:maxPartners]
	}
	return partners
}

// selectExamples picks up to maxExamples flagged messages to surface
// verbatim. The externally supplied ranked index list wins when present;
// otherwise a deterministic local ranking by summed severity weight takes
// over, tie-broken by flag count.
func selectExamples(
	instances []*models.AnalysisInstance,
	flags []models.FlagDefinition,
	rankedIdx []int,
) []models.MessageExample {
	ordered := make([]*models.AnalysisInstance, 0, len(instances))

	if len(rankedIdx) > 0 {
		seen := map[int]bool{}
		for _, idx := range rankedIdx {
			if idx < 0 || idx >= len(instances) || seen[idx] {
				continue
			}
			seen[idx] = true
			ordered = append(ordered, instances[idx])
		}
	}

	if len(ordered) == 0 {
		ordered = append(ordered, instances...)
		sort.SliceStable(ordered, func(i, j int) bool {
			severityI := severitySum(ordered[i], flags)
			severityJ := severitySum(ordered[j], flags)
			if severityI != severityJ {
				return severityI > severityJ
			}
			return len(ordered[i].FlagIDs) > len(ordered[j].FlagIDs)
		})
	}

	if len(ordered) > maxExamples {
		ordered = ordered[:maxExamples]
	}

	examples := make([]models.MessageExample, 0, len(ordered))
	for _, instance := range ordered {
		flagIDs := make([]int, 0, len(instance.FlagIDs))
		for _, id := range instance.FlagIDs {
			flagIDs = append(flagIDs, int(id))
		}
		examples = append(examples, models.MessageExample{
			ChannelID:     instance.ChannelID,
			MessageTS:     instance.MessageTS,
			Text:          utils.TruncateText(instance.OriginalText, exampleTextLimit),
			FlagIDs:       flagIDs,
			SeverityScore: severitySum(instance, flags),
		})
	}
	return examples
}

// buildChartMetadata constructs the equal-length current/previous day series.
// Alignment is by calendar position (weekday for weekly, day-of-month for
// monthly), never by raw array offset: comparing a 31-day month against a
// 30-day previous month leaves the extra day's previous bucket at zero.
func buildChartMetadata(in ReportInput, score int, breakdown []models.FlagBreakdownEntry) models.ChartMetadata {
	buckets := bucketCount(in.Period, in.PeriodStart)

	current := make([]int, buckets)
	flagSeries := map[string][]int{}
	for _, entry := range breakdown {
		flagSeries[strconv.Itoa(entry.FlagID)] = make([]int, buckets)
	}

	for _, instance := range in.Instances {
		idx := bucketIndex(in.Period, in.PeriodStart, in.PeriodEnd, instance.CreatedAt)
		if idx < 0 || idx >= buckets {
			continue
		}
		current[idx]++
		for _, flagID := range instance.FlagIDs {
			if series, ok := flagSeries[strconv.Itoa(int(flagID))]; ok {
				series[idx]++
			}
		}
	}

	previous := make([]int, buckets)
	if len(in.Previous) > 0 {
		prevSeries := in.Previous[0].Data.ChartMetadata.CurrentSeries
		for i := 0; i < buckets && i < len(prevSeries); i++ {
			previous[i] = prevSeries[i]
		}
	}

	labels := make([]string, buckets)
	if in.Period == models.ReportPeriodWeekly {
		names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
		copy(labels, names)
	} else {
		for i := range labels {
			labels[i] = strconv.Itoa(i + 1)
		}
	}

	history := make([]models.ScorePoint, 0, len(in.Previous)+1)
	for i := len(in.Previous) - 1; i >= 0; i-- {
		history = append(history, models.ScorePoint{
			PeriodStart: in.Previous[i].PeriodStart,
			Score:       in.Previous[i].CommunicationScore,
		})
	}
	history = append(history, models.ScorePoint{PeriodStart: in.PeriodStart, Score: score})

	return models.ChartMetadata{
		BucketLabels:   labels,
		CurrentSeries:  current,
		PreviousSeries: previous,
		FlagSeries:     flagSeries,
		ScoreHistory:   history,
	}
}

// localRecommendations is the fallback when the upstream payload supplies
// none: derived from the most frequent flags in the window.
func localRecommendations(breakdown []models.FlagBreakdownEntry) []string {
	if len(breakdown) == 0 {
		return []string{"No flagged messages this period. Keep it up."}
	}
	recommendations := make([]string, 0, 3)
	for i, entry := range breakdown {
		if i >= 3 {
			break
		}
		recommendations = append(recommendations, fmt.Sprintf(
			"%q came up %d times this period. Re-reading those messages before sending can help.",
			entry.FlagName, entry.Count,
		))
	}
	return recommendations
}

func localInsights(score, flagged, total int) []string {
	if total == 0 {
		return []string{"No messages analyzed this period."}
	}
	return []string{fmt.Sprintf(
		"%d of %d analyzed messages were flagged, for a communication score of %d.",
		flagged, total, score,
	)}
}

func localAchievements(score, scoreChange, flagged int) []string {
	achievements := []string{}
	if flagged == 0 {
		achievements = append(achievements, "A clean period: no flagged messages.")
	}
	if scoreChange > scoreTrendDeadband {
		achievements = append(achievements, fmt.Sprintf("Score improved by %d points.", scoreChange))
	}
	if score >= 90 {
		achievements = append(achievements, "Communication score in the top band (90+).")
	}
	return achievements
}
