package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/models"
	mongorepo "github.com/veridict/voicelab/internal/repositories/mongo"
	"github.com/veridict/voicelab/internal/utils"
)

// JobStream is the Redis stream carrying queued analysis jobs; workers
// consume it as a consumer group.
const JobStream = "analysis:jobs"

// JobStatusChannel is the pub/sub channel for one job's lifecycle events.
func JobStatusChannel(jobID string) string { return "job:" + jobID + ":status" }

// AnalysisService runs the engine's analyses over ingested recordings, both
// synchronously and as queued jobs.
type AnalysisService interface {
	Diarize(ctx context.Context, audioID, caseID string) (*models.DiarizationResult, error)
	AnalyzeEmotion(ctx context.Context, audioID string) (*models.EmotionSummary, error)
	AnalyzeStress(ctx context.Context, audioID, baselineAudioID string) (*models.VoiceStressAnalysis, error)
	Compare(ctx context.Context, audioIDA, audioIDB string) (*models.ComparisonResult, error)
	Report(ctx context.Context, caseID, audioIDA, audioIDB string) (*models.ForensicReport, error)

	// Run dispatches one operation by name. The sync endpoints and the
	// worker pool share this path so results cannot drift between them.
	Run(ctx context.Context, operation string, params map[string]string) (interface{}, error)

	SubmitJob(ctx context.Context, operation, audioID string, params map[string]string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.AnalysisResult, error)
}

type analysisService struct {
	features FeatureService
	speakers SpeakerService
	enhance  EnhancementService

	diarizer *engine.Diarizer
	emotion  *engine.EmotionAnalyzer
	stress   *engine.StressDetector
	compare  *engine.Comparator

	results mongorepo.ResultRepository
	redis   *redis.Client
}

func NewAnalysisService(
	features FeatureService,
	speakers SpeakerService,
	enhance EnhancementService,
	diarizer *engine.Diarizer,
	emotion *engine.EmotionAnalyzer,
	stress *engine.StressDetector,
	compare *engine.Comparator,
	results mongorepo.ResultRepository,
	rdb *redis.Client,
) AnalysisService {
	return &analysisService{
		features: features,
		speakers: speakers,
		enhance:  enhance,
		diarizer: diarizer,
		emotion:  emotion,
		stress:   stress,
		compare:  compare,
		results:  results,
		redis:    rdb,
	}
}

func (s *analysisService) Diarize(ctx context.Context, audioID, caseID string) (*models.DiarizationResult, error) {
	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}

	var known []engine.ProfileCandidate
	if caseID != "" {
		profiles, err := s.speakers.List(ctx, caseID)
		if err == nil {
			for i := range profiles {
				sig, serr := profileSignature(&profiles[i])
				if serr != nil {
					continue
				}
				known = append(known, engine.ProfileCandidate{
					ProfileID:   profiles[i].ProfileID,
					DisplayName: profiles[i].DisplayName,
					Signature:   sig,
				})
			}
		}
	}
	return s.diarizer.Diarize(ctx, clip, known)
}

func (s *analysisService) AnalyzeEmotion(ctx context.Context, audioID string) (*models.EmotionSummary, error) {
	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	return s.emotion.Analyze(ctx, clip)
}

func (s *analysisService) AnalyzeStress(ctx context.Context, audioID, baselineAudioID string) (*models.VoiceStressAnalysis, error) {
	clip, err := s.features.ClipFor(ctx, audioID)
	if err != nil {
		return nil, err
	}
	var baseline *models.AudioFeatures
	if baselineAudioID != "" {
		baseline, err = s.features.FeaturesFor(ctx, baselineAudioID)
		if err != nil {
			return nil, err
		}
	}
	return s.stress.Analyze(ctx, clip, baseline)
}

func (s *analysisService) Compare(ctx context.Context, audioIDA, audioIDB string) (*models.ComparisonResult, error) {
	const op = "AnalysisService.Compare"

	if audioIDA == "" || audioIDB == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "both audio ids are required", nil)
	}
	fa, err := s.features.FeaturesFor(ctx, audioIDA)
	if err != nil {
		return nil, err
	}
	fb, err := s.features.FeaturesFor(ctx, audioIDB)
	if err != nil {
		return nil, err
	}
	return s.compare.Compare(fa, fb)
}

func (s *analysisService) Report(ctx context.Context, caseID, audioIDA, audioIDB string) (*models.ForensicReport, error) {
	cmp, err := s.Compare(ctx, audioIDA, audioIDB)
	if err != nil {
		return nil, err
	}
	return s.compare.GenerateForensicReport(caseID, cmp), nil
}

func (s *analysisService) Run(ctx context.Context, operation string, params map[string]string) (interface{}, error) {
	const op = "AnalysisService.Run"

	switch operation {
	case "identify":
		return s.speakers.Identify(ctx, params["audio_id"], params["case_id"])
	case "verify":
		return s.speakers.Verify(ctx, params["audio_id"], params["profile_id"])
	case "diarize":
		return s.Diarize(ctx, params["audio_id"], params["case_id"])
	case "emotion":
		return s.AnalyzeEmotion(ctx, params["audio_id"])
	case "stress":
		return s.AnalyzeStress(ctx, params["audio_id"], params["baseline_audio_id"])
	case "compare":
		return s.Compare(ctx, params["audio_id"], params["audio_id_b"])
	case "report":
		return s.Report(ctx, params["case_id"], params["audio_id"], params["audio_id_b"])
	case "quality":
		return s.enhance.AssessQuality(ctx, params["audio_id"])
	case "noise":
		return s.enhance.AnalyzeNoise(ctx, params["audio_id"])
	case "enhance":
		level := engine.Aggressiveness(params["aggressiveness"])
		if level == "" {
			level = engine.AggressivenessModerate
		}
		var filters []string
		if raw := params["filters"]; raw != "" {
			filters = strings.Split(raw, ",")
		}
		return s.enhance.Enhance(ctx, params["audio_id"], level, filters)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown operation: "+operation, nil)
	}
}

// SubmitJob records the job and pushes it on the stream. Workers pick it up;
// clients follow progress over the job status channel or by polling.
func (s *analysisService) SubmitJob(ctx context.Context, operation, audioID string, params map[string]string) (string, error) {
	const op = "AnalysisService.SubmitJob"

	if operation == "" || audioID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "operation and audio_id are required", nil)
	}
	if params == nil {
		params = map[string]string{}
	}
	params["audio_id"] = audioID

	jobID := uuid.NewString()
	if err := s.results.Create(ctx, &models.AnalysisResult{
		JobID:     jobID,
		AudioID:   audioID,
		Operation: operation,
		Status:    models.JobQueued,
	}); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to record job", err)
	}

	paramsJSON, _ := json.Marshal(params)
	if err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: JobStream,
		Values: map[string]interface{}{
			"job_id":    jobID,
			"audio_id":  audioID,
			"operation": operation,
			"params":    string(paramsJSON),
		},
	}).Err(); err != nil {
		_ = s.results.Fail(ctx, jobID, "failed to enqueue")
		return "", utils.E(utils.CodeUnavailable, op, "failed to enqueue job", err)
	}
	return jobID, nil
}

func (s *analysisService) JobStatus(ctx context.Context, jobID string) (*models.AnalysisResult, error) {
	const op = "AnalysisService.JobStatus"

	if jobID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "job_id is required", nil)
	}
	res, err := s.results.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to read job", err)
	}
	return res, nil
}
