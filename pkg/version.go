package foodtracker

// Version is reported by the CLI and sent in the Open Food Facts User-Agent.
const Version = "0.0.1"
