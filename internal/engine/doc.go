// Package engine is the boundary to the external traffic simulation.
//
// The simulation itself (mobsim, replanning, scoring) is not implemented
// here. An Engine takes a prepared config, runs the simulation to the
// configured last iteration and hands back what the harness needs to
// verify: the per-iteration score history and the final population.
//
// ExecEngine drives a simulation binary as a child process and reads the
// files it leaves in the output directory:
//
//	[runId.]scorestats.txt
//	[runId.]output_plans.xml.gz
//
// Tests use in-process engines from internal/testutil instead.
package engine
