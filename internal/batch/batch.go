// Package batch runs many downloads concurrently from a YAML job
// list, the worker-pool idiom the teacher's internal/scheduler sketches
// for heterogeneous job types, here specialized to one job type: a
// resumable HTTP download.
package batch

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Job is one entry in a batch file.
type Job struct {
	URL    string `yaml:"url"`
	Output string `yaml:"output"`
}

// Result is what Run reports for a single Job once it finishes.
type Result struct {
	Job Job
	Err error
}

// LoadJobs reads a YAML list of jobs from path.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: reading %s: %w", path, err)
	}
	var jobs []Job
	if err := yaml.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("batch: parsing %s: %w", path, err)
	}
	for i, j := range jobs {
		if j.URL == "" {
			return nil, fmt.Errorf("batch: job %d is missing a url", i)
		}
	}
	return jobs, nil
}

// Run fans jobs out across workers concurrent workers, each running
// runOne to completion, and returns one Result per job (order not
// guaranteed to match the input). A panic in runOne is not recovered:
// callers are expected to return errors, not panic.
func Run(jobs []Job, workers int, runOne func(Job) error) []Result {
	if workers < 1 {
		workers = 1
	}
	jobCh := make(chan Job, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	resultCh := make(chan Result, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				resultCh <- Result{Job: job, Err: runOne(job)}
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}
