// Package report renders retention decisions for people and machines.
//
// The text reporter streams the classic console report while a run
// progresses:
//
//	Cookbook: apache2
//	Current Promoted Version: 2.0
//	- Total Versions on Server: 7
//	- Versions older than 2.0: 6
//	- Keeping versions [1.5, 1.4, 1.3]
//	- Versions fitting deletion criteria: 3
//	-- Skipping deletions as --really-clean not specified
//
// JSON and CSV reporters emit a single Summary at the end of the run.
package report
