package myinvestor

import (
	"finagg/lib/telemetry"
)

var tracer = telemetry.Tracer("finagg/lib/scrapers/myinvestor")
