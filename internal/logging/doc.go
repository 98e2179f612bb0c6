// Package logging is the structured logging facade used by linemax. Every
// component logs through the Logger interface; the zerolog adapter renders
// entries as console text on stderr or as JSON for machine consumers.
package logging
