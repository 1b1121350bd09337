// Package harness runs model scenarios as executable tests.
//
// A scenario names a CUE model, a seed and a step limit, then asserts on the
// finished run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: growth
//	description: "Origin growth fills the grid"
//	model: ../models/growth.cue
//	seed: 7
//	max_steps: 100
//	assertions:
//	  - type: steps
//	    steps: 16
//	  - type: count
//	    counts: {W: 16}
//	  - type: cell
//	    x: 0
//	    y: 0
//	    char: W
//	  - type: no_matches
//	  - type: deterministic
//
// # Assertion Types
//
//   - steps: exact step count (steps) or an upper bound (max)
//   - count: occurrences of each listed character in the final grid
//   - cell: the character at (x, y, z)
//   - no_matches: the run ended on its own, not at max_steps
//   - deterministic: a fresh run with the same seed yields identical frames
//
// # Deterministic Testing
//
// Every run is reproducible from its seed. The harness uses:
//   - A fixed run ID per scenario (testutil.FixedRunIDGenerator)
//   - In-memory SQLite database (isolated per scenario)
//
// The final grid is rendered as text, which RunWithGolden compares against
// testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/growth.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
