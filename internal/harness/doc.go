// Package harness provides conformance testing for the MANP analysis.
//
// A scenario pairs a CUE program with the annotations the analysis must
// produce for one of its functions, or with the diagnostic it must fail
// with.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: add_constant
//	description: "Adding a plaintext 5 to a fresh ciphertext"
//	program: programs/add.cue     # file or directory, relative to the scenario
//	function: main
//	expect:
//	  - value: r
//	    sq_norm: "26"
//	    manp: "6"
//	expect_max_manp: "6"
//
// A failing analysis is described with expect_error instead of expect:
//
//	expect_error:
//	  code: UNSUPPORTED_OPERATION
//	  value: n
//
// The program may also be given inline with source instead of program.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a fixed run ID,
// and the annotations read back from the store must equal the computed
// ones. Snapshots contain no locations or run IDs, so golden files are
// identical across machines.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/add.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
