package database

// DayLayout is the storage and wire format of an attendance day.
const DayLayout = "2006-01-02"

// MaxSimilarLimit caps the number of rows a similarity search may return.
const MaxSimilarLimit = 100
