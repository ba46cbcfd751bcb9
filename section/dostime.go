package section

import "time"

// TimeToDOS converts t to the MS-DOS date and time fields.
// Times before 1980 clamp to 1980-01-01 00:00:00; seconds have 2s resolution.
func TimeToDOS(t time.Time) (date, tm uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if t.Year() > 2107 {
		t = time.Date(2107, 12, 31, 23, 59, 58, 0, time.UTC)
	}

	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	tm = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)

	return date, tm
}

// DOSToTime converts MS-DOS date and time fields to a UTC time.
func DOSToTime(date, tm uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(tm>>11),
		int(tm>>5&0x3f),
		int(tm&0x1f)*2,
		0,
		time.UTC,
	)
}
