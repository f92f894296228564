package store_test

import (
	"context"
	"fmt"
	"log"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
	"github.com/vddownco/video-downloader-hls/pkg/store"
)

// Example_lifecycle demonstrates a job moving through the pipeline states
func Example_lifecycle() {
	s := store.NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	// Create a new job
	job := &store.Job{
		JobID:     "example-job-1",
		SourceURL: "http://example.com/movie.mkv",
	}
	if err := s.CreateJob(ctx, job); err != nil {
		log.Fatal(err)
	}

	// Download stage
	if err := s.Transition(ctx, job.JobID, schemas.JobStatePending, schemas.JobStateDownloading); err != nil {
		log.Fatal(err)
	}
	if err := s.SetLocalFile(ctx, job.JobID, "/var/lib/uploads/example-job-1.mkv"); err != nil {
		log.Fatal(err)
	}

	// Analysis stage
	if err := s.Transition(ctx, job.JobID, schemas.JobStateDownloading, schemas.JobStateAnalyzing); err != nil {
		log.Fatal(err)
	}
	streams := &schemas.StreamSet{
		Video: []schemas.VideoStream{{Index: 0, Codec: "h264", Width: 1920, Height: 1080}},
		Audio: []schemas.AudioStream{{Index: 1, Codec: "aac", Channels: 2}},
	}
	if err := s.SetStreams(ctx, job.JobID, streams, 4250.0); err != nil {
		log.Fatal(err)
	}
	if err := s.Transition(ctx, job.JobID, schemas.JobStateAnalyzing, schemas.JobStateReadyForConversion); err != nil {
		log.Fatal(err)
	}

	// The caller picks streams; exactly one BeginConversion succeeds
	sel := schemas.StreamSelection{Video: []int{0}, Audio: []int{1}}
	if err := s.BeginConversion(ctx, job.JobID, sel, streams.Counts()); err != nil {
		log.Fatal(err)
	}

	// Conversion finished
	if err := s.SetCompleted(ctx, job.JobID, "/hls/example-job-1/playlist.m3u8"); err != nil {
		log.Fatal(err)
	}

	final, err := s.GetJob(ctx, job.JobID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Status: %s\n", final.Status)
	fmt.Printf("Progress: %d\n", final.Progress)
	fmt.Printf("Playlist: %s\n", final.PlaylistURL)

	// Output:
	// Status: completed
	// Progress: 100
	// Playlist: /hls/example-job-1/playlist.m3u8
}

// Example_listJobs demonstrates listing and filtering jobs
func Example_listJobs() {
	s := store.NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	statuses := []schemas.JobState{
		schemas.JobStatePending,
		schemas.JobStateConverting,
		schemas.JobStateCompleted,
		schemas.JobStateError,
	}
	for i, status := range statuses {
		job := &store.Job{
			JobID:  fmt.Sprintf("job-%d", i+1),
			Status: status,
		}
		if err := s.CreateJob(ctx, job); err != nil {
			log.Fatal(err)
		}
	}

	allJobs, err := s.ListJobs(ctx, &store.ListFilter{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Total jobs: %d\n", len(allJobs))

	activeJobs, err := s.ListJobs(ctx, &store.ListFilter{
		Status: []schemas.JobState{schemas.JobStatePending, schemas.JobStateConverting},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Active jobs: %d\n", len(activeJobs))

	// Output:
	// Total jobs: 4
	// Active jobs: 2
}
