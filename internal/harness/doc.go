// Package harness runs regression scenarios against a simulation engine and
// checks the outcome against recorded reference values.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: berlin-v5.0-1pct-100it
//	description: "100 iterations on the reduced 1pct population"
//	config: ../configs/berlin-v5.0-1pct.config.xml
//	overrides:
//	  last_iteration: 100
//	  overwrite_policy: deleteDirectoryIfExists
//	  fraction_disable_innovation: 1.0
//	  params:
//	    global: { numberOfThreads: "4" }
//	assertions:
//	  - type: score
//	    item: average
//	    iteration: 0
//	    expect: 115.2173655596178
//	    tolerance: epsilon
//	  - type: mode_share
//	    mode: car
//	    expect: 0.41707279676702186
//	    tolerance: regression
//
// Documents are checked against an embedded CUE schema before they are
// decoded, and unknown fields are rejected.
//
// # Assertion Types
//
//   - score: one score statistic at one iteration
//   - mode_share: fraction of all trips whose main mode is mode
//   - mode_count: exact number of trips with main mode mode
//   - trip_total: exact number of trips
//
// Tolerances are "epsilon" (1e-10), "regression" (0.01) or an absolute
// number. Score assertions at iteration 0 default to epsilon, everything
// else to regression.
//
// # Golden Snapshots
//
// Every result carries a Snapshot of the observed scores and mode
// distribution, serialized as canonical JSON into golden/<name>.golden
// beside the scenario file. RunWithGolden and AssertGolden compare it byte
// for byte; CompareSnapshot compares it within the scenario's tolerances.
package harness
