package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/detection"
)

func main() {
	limit := flag.Int("limit", 5, "Number of recent analyses to show")
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./faik.db"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	fmt.Println("Checking analysis history")
	fmt.Println("=========================")

	if url := os.Getenv("CLASSIFIER_URL"); url == "" {
		fmt.Println("WARNING: CLASSIFIER_URL is not set, the server will use http://localhost:8000")
	} else {
		fmt.Printf("Classifier: %s\n", url)
	}
	fmt.Println()

	var total, deepfakes int
	err = db.QueryRow("SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_deepfake THEN 1 ELSE 0 END), 0) FROM analyses").
		Scan(&total, &deepfakes)
	if err != nil {
		fmt.Println("No analyses table found (server has not run against this database yet)")
		return
	}
	fmt.Printf("Total analyses: %d (%d flagged as deepfake)\n\n", total, deepfakes)

	rows, err := db.Query(`
		SELECT filename, model_name, chunk_duration, overlap, result, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ?
	`, *limit)
	if err != nil {
		log.Fatal("Failed to query analyses: ", err)
	}
	defer rows.Close()

	fmt.Println("Recent analyses:")
	fmt.Println("----------------")

	count := 0
	for rows.Next() {
		var (
			filename, modelName, resultJSON, createdAt string
			chunkDuration, overlap                    float64
		)
		if err := rows.Scan(&filename, &modelName, &chunkDuration, &overlap, &resultJSON, &createdAt); err != nil {
			log.WithError(err).Warn("error scanning row")
			continue
		}
		count++

		fmt.Printf("\n%s (%s)\n", filename, createdAt)
		fmt.Printf("   model: %s, chunks of %.1fs with %.0f%% overlap\n", modelName, chunkDuration, overlap*100)

		var result detection.AnalysisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			fmt.Println("   result could not be decoded")
			continue
		}

		verdict := "real"
		if result.IsDeepfake {
			verdict = "DEEPFAKE"
		}
		fmt.Printf("   verdict: %s, confidence %.3f, %d/%d chunks AI generated\n",
			verdict, result.OverallConfidence, result.Summary.AIGeneratedChunks, result.TotalChunks)

		for _, c := range result.Chunks {
			if c.IsAIGenerated {
				fmt.Printf("   first AI chunk: %.1fs-%.1fs (p=%.3f)\n", c.StartTime, c.EndTime, c.ClassProbabilities.AIGenerated)
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatal("Failed to read analyses: ", err)
	}

	if count == 0 {
		fmt.Println("No analyses found yet. POST an audio file to /analyze-audio to create one.")
	}
}
