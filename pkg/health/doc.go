// Package health provides HTTP handlers for liveness and readiness checks.
//
// [LivenessHandler] answers OK while the process runs. [ReadinessHandler]
// runs a set of named [Checks] in parallel under a shared timeout and answers
// 503 when any of them fails.
//
// Both handlers answer plain text by default and JSON when the request has
// ?format=json or an Accept header containing application/json:
//
//	{"status":"unhealthy","checks":{"db":{"status":"healthy","latency":"1.2ms"},
//	 "stuck_jobs":{"status":"unhealthy","error":"1 job started before ...","latency":"3ms"}}}
//
// Checks use the func(context.Context) error signature shared by
// db.Healthcheck, redis.Healthcheck and job.Healthcheck.
package health
