// Package cloudsync delivers media device state to the cloud assistant and
// to local observers.
//
// Every time a device's state changes the media package calls
// Reporter.ReportState with the full state. The Reporter queues the report
// and a single worker pushes it to each configured Sink in order:
//
//   - HomeGraph: POSTs a report-state document to the assistant endpoint,
//     with a fresh requestId per push and optional rate limiting
//   - Journal: appends the state to the SQLite state_history table
//   - Telemetry: writes the state as an InfluxDB point
//
// A failing sink never blocks the others or the device that reported.
//
// # Usage
//
//	hg, err := cloudsync.NewHomeGraph(cloudsync.HomeGraphConfig{
//	    Endpoint:    cfg.CloudSync.Endpoint,
//	    AgentUserID: cfg.CloudSync.AgentUserID,
//	})
//	reporter := cloudsync.NewReporter(cloudsync.ReporterOptions{Logger: log},
//	    hg, cloudsync.NewJournal(db.DB))
//	reporter.Start(ctx)
//	defer reporter.Stop()
package cloudsync
