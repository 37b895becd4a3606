package usecase

// ParseQuestion is exported for testing
var ParseQuestion = parseQuestion

// TrimGeneralReply is exported for testing
var TrimGeneralReply = trimGeneralReply

// ParseSummary is exported for testing
var ParseSummary = parseSummary

// SameStem is exported for testing
var SameStem = sameStem

// SanitizeFilename is exported for testing
var SanitizeFilename = sanitizeFilename

// ContentWords is exported for testing
var ContentWords = contentWords

// IndexWord is exported for testing
var IndexWord = indexWord
