package detection

// Aggregate reduces ordered chunk results into the file-level verdict.
//
// Every chunk is one equally weighted vote: the file is a deepfake when
// strictly more than half of the chunks are AI-generated. The overall
// confidence is the mean of each chunk's winning-class confidence and is not
// weighted by agreement with the verdict.
func Aggregate(results []ChunkResult, chunkDuration, overlap float64) (*AnalysisResult, error) {
	total := len(results)
	if total == 0 {
		return nil, ErrNoChunksProduced
	}

	aiChunks := 0
	confidenceSum := 0.0
	for _, r := range results {
		if r.IsAIGenerated {
			aiChunks++
		}
		confidenceSum += r.Confidence
	}

	ratio := float64(aiChunks) / float64(total)
	avgConfidence := confidenceSum / float64(total)

	chunks := make([]ChunkResult, total)
	copy(chunks, results)

	return &AnalysisResult{
		IsDeepfake:        ratio > DeepfakeRatioThreshold,
		OverallConfidence: avgConfidence,
		TotalChunks:       total,
		Chunks:            chunks,
		Summary: AnalysisSummary{
			TotalChunks:          total,
			AIGeneratedChunks:    aiChunks,
			RealChunks:           total - aiChunks,
			AIGeneratedRatio:     ratio,
			AverageConfidence:    avgConfidence,
			ChunkDurationSeconds: chunkDuration,
			OverlapRatio:         overlap,
		},
	}, nil
}
