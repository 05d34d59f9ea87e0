// Package dateutil is a port of pycvsps's dateutil module: parsing and
// formatting of (unixtime, tz-offset) date tuples from the handful of
// textual date formats cvsps has to deal with - CVS rlog's own date
// field, and the log-cache's serialized last-seen date.
//
// Copyright by Eric S. Raymond
// SPDX-License-Identifier: BSD-2-Clause
package dateutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AbortError reports a date cvsps is not willing to accept - one that
// matches none of the candidate formats, a negative timestamp, a
// timestamp that doesn't fit 32 bits, or an impossible timezone offset.
type AbortError struct {
	msg string
}

func (e *AbortError) Error() string { return e.msg }

func abortf(format string, args ...interface{}) *AbortError {
	return &AbortError{msg: fmt.Sprintf(format, args...)}
}

// Date is the (unixtime, tz-offset-seconds) tuple used throughout cvsps.
// unixtime is seconds since the epoch; offset is the number of seconds
// the timezone of origin sits away from UTC (positive west, matching
// CVS/Mercurial convention, i.e. localtime = unixtime - offset).
type Date struct {
	Unix   int64
	Offset int
}

// Sum is the ordering key used everywhere cvsps compares dates: the
// teacher's changeset comparator and the synthesizer's fuzz window both
// compare on unixtime+offset, not on unixtime alone.
func (d Date) Sum() int64 {
	return d.Unix + int64(d.Offset)
}

// Before reports whether d sorts before other under Sum().
func (d Date) Before(other Date) bool { return d.Sum() < other.Sum() }

// String renders a Date's (unixtime, offset) representation as
// "<unix> <+-hhmm>".
func (d Date) String() string {
	sign := byte('+')
	off := d.Offset
	if off > 0 {
		sign = '-'
	} else {
		off = -off
	}
	return fmt.Sprintf("%d %c%02d%02d", d.Unix, sign, off/3600, (off/60)%60)
}

const (
	minTimestamp = -0x80000000
	maxTimestamp = 0x7fffffff
	minTZOffset  = -50400
	maxTZOffset  = 43200
)

// MakeDate returns the current time (or ts, if non-nil) as a Date in the
// local timezone.
func MakeDate(ts *int64) (Date, error) {
	var timestamp int64
	if ts == nil {
		timestamp = time.Now().Unix()
	} else {
		timestamp = *ts
	}
	if timestamp < 0 {
		return Date{}, abortf("negative timestamp: %d (check your clock)", timestamp)
	}
	_, offset := time.Unix(timestamp, 0).Zone()
	return Date{Unix: timestamp, Offset: -offset}, nil
}

// defaultDateFormats mirrors pycvsps's defaultdateformats ranked list, for
// callers (e.g. the CLI) that need to accept loosely-specified dates.
var defaultDateFormats = []string{
	"%Y-%m-%dT%H:%M:%S",
	"%Y-%m-%dT%H:%M",
	"%Y-%m-%dT%H%M%S",
	"%Y-%m-%dT%H%M",
	"%Y-%m-%d %H:%M:%S",
	"%Y-%m-%d %H:%M",
	"%Y-%m-%d %H%M%S",
	"%Y-%m-%d %H%M",
	"%Y-%m-%d %I:%M:%S%p",
	"%Y-%m-%d %H:%M",
	"%Y-%m-%d %I:%M%p",
	"%Y-%m-%d",
	"%m-%d",
	"%m/%d",
	"%m/%d/%y",
	"%m/%d/%Y",
	"%a %b %d %H:%M:%S %Y",
	"%a %b %d %I:%M:%S%p %Y",
	"%a, %d %b %Y %H:%M:%S",
	"%b %d %H:%M:%S %Y",
	"%b %d %I:%M:%S%p %Y",
	"%b %d %H:%M:%S",
	"%b %d %I:%M:%S%p",
	"%b %d %H:%M",
	"%b %d %I:%M%p",
	"%b %d %Y",
	"%b %d",
	"%H:%M:%S",
	"%I:%M:%S%p",
	"%H:%M",
	"%I:%M%p",
}

// DefaultDateFormats returns the ranked format list used when the caller
// doesn't supply one.
func DefaultDateFormats() []string {
	out := make([]string, len(defaultDateFormats))
	copy(out, defaultDateFormats)
	return out
}

var monthAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// strptimeField describes one %-directive: its regexp fragment and the
// struct field it fills in.
type strptimeField struct {
	name  byte
	regex string
}

var strptimeFields = []strptimeField{
	{'Y', `(?P<Y>\d{4})`},
	{'y', `(?P<y>\d{2})`},
	{'m', `(?P<m>\d{1,2})`},
	{'d', `(?P<d>\d{1,2})`},
	{'H', `(?P<H>\d{1,2})`},
	{'I', `(?P<I>\d{1,2})`},
	{'M', `(?P<M>\d{1,2})`},
	{'S', `(?P<S>\d{1,2})`},
	{'p', `(?P<p>[AaPp][Mm])`},
	{'a', `(?P<a>[A-Za-z]{3})`},
	{'b', `(?P<b>[A-Za-z]{3})`},
}

// compileStrptime turns a strftime-style format string into a regexp with
// named capture groups, the same directive set pycvsps relies on via
// Python's time.strptime.
func compileStrptime(format string) (*regexp.Regexp, error) {
	var out strings.Builder
	out.WriteString(`^`)
	i := 0
	for i < len(format) {
		c := format[i]
		if c == '%' && i+1 < len(format) {
			d := format[i+1]
			matched := false
			for _, f := range strptimeFields {
				if f.name == d {
					out.WriteString(f.regex)
					matched = true
					break
				}
			}
			if !matched {
				if d == '%' {
					out.WriteString(`%`)
				} else {
					return nil, fmt.Errorf("unsupported strptime directive %%%c", d)
				}
			}
			i += 2
			continue
		}
		out.WriteString(regexp.QuoteMeta(string(c)))
		i++
	}
	out.WriteString(`$`)
	return regexp.Compile(out.String())
}

// strptime parses value against format and returns the named fields found.
func strptime(value, format string) (map[string]string, error) {
	re, err := compileStrptime(format)
	if err != nil {
		return nil, err
	}
	m := re.FindStringSubmatch(value)
	if m == nil {
		return nil, fmt.Errorf("%q does not match format %q", value, format)
	}
	fields := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" {
			fields[name] = m[i]
		}
	}
	return fields, nil
}

// ParseTimezone finds a trailing timezone in s, returning (offset,
// remainder). offset is nil when no timezone could be found.
func ParseTimezone(s string) (*int, string) {
	if strings.HasSuffix(s, "GMT") || strings.HasSuffix(s, "UTC") {
		zero := 0
		return &zero, strings.TrimRight(s[:len(s)-3], " ")
	}
	if len(s) >= 5 {
		sign := s[len(s)-5]
		digits := s[len(s)-4:]
		if (sign == '+' || sign == '-') && isAllDigits(digits) {
			hours, _ := strconv.Atoi(digits[:2])
			minutes, _ := strconv.Atoi(digits[2:])
			mul := 1
			if sign == '-' {
				mul = -1
			}
			off := -mul * (hours*60 + minutes) * 60
			return &off, strings.TrimRight(s[:len(s)-5], " ")
		}
	}
	if strings.HasSuffix(s, "Z") && len(s) >= 2 && isDigit(s[len(s)-2]) {
		zero := 0
		return &zero, s[:len(s)-1]
	}
	if len(s) >= 6 {
		sign := s[len(s)-6]
		if (sign == '+' || sign == '-') && s[len(s)-3] == ':' &&
			isAllDigits(s[len(s)-5:len(s)-3]) && isAllDigits(s[len(s)-2:]) {
			hours, _ := strconv.Atoi(s[len(s)-5 : len(s)-3])
			minutes, _ := strconv.Atoi(s[len(s)-2:])
			mul := 1
			if sign == '-' {
				mul = -1
			}
			off := -mul * (hours*60 + minutes) * 60
			return &off, s[:len(s)-6]
		}
	}
	return nil, s
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// fieldsFor builds a UTC calendar timestamp from the strptime field map,
// defaulting an absent year, month or day to now's and an absent hour,
// minute or second to 0.
func fieldsFor(fields map[string]string, now time.Time) (time.Time, error) {
	year := now.Year()
	if y, ok := fields["Y"]; ok {
		n, err := strconv.Atoi(y)
		if err != nil {
			return time.Time{}, err
		}
		year = n
	} else if y, ok := fields["y"]; ok {
		n, err := strconv.Atoi(y)
		if err != nil {
			return time.Time{}, err
		}
		if n < 69 {
			year = 2000 + n
		} else {
			year = 1900 + n
		}
	}
	month := now.Month()
	if m, ok := fields["m"]; ok {
		n, err := strconv.Atoi(m)
		if err != nil {
			return time.Time{}, err
		}
		month = time.Month(n)
	} else if b, ok := fields["b"]; ok {
		mm, found := monthAbbr[strings.ToLower(b)]
		if !found {
			return time.Time{}, fmt.Errorf("unrecognized month name %q", b)
		}
		month = mm
	}
	day := now.Day()
	if d, ok := fields["d"]; ok {
		n, err := strconv.Atoi(d)
		if err != nil {
			return time.Time{}, err
		}
		day = n
	}
	hour := 0
	if h, ok := fields["H"]; ok {
		n, err := strconv.Atoi(h)
		if err != nil {
			return time.Time{}, err
		}
		hour = n
	} else if h, ok := fields["I"]; ok {
		n, err := strconv.Atoi(h)
		if err != nil {
			return time.Time{}, err
		}
		hour = n % 12
		if p, ok := fields["p"]; ok && strings.EqualFold(p[:1], "p") {
			hour += 12
		}
	}
	minute := 0
	if mi, ok := fields["M"]; ok {
		n, err := strconv.Atoi(mi)
		if err != nil {
			return time.Time{}, err
		}
		minute = n
	}
	second := 0
	if s, ok := fields["S"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, err
		}
		second = n
	}
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC), nil
}

// StrDate parses a localized time string against a single format and
// returns a (unixtime, offset) tuple, porting pycvsps's strdate().
func StrDate(value, format string) (Date, error) {
	offset, rest := ParseTimezone(value)
	fields, err := strptime(rest, format)
	if err != nil {
		return Date{}, err
	}
	calendar, err := fieldsFor(fields, time.Now().UTC())
	if err != nil {
		return Date{}, err
	}
	localUnix := calendar.Unix()
	if offset == nil {
		// Interpret as local time: reparse the same calendar fields in the
		// local zone and take the difference as the offset, matching
		// pycvsps's use of time.mktime() vs calendar.timegm().
		local := time.Date(calendar.Year(), calendar.Month(), calendar.Day(),
			calendar.Hour(), calendar.Minute(), calendar.Second(), 0, time.Local)
		off := int(local.Unix() - localUnix)
		return Date{Unix: local.Unix(), Offset: off}, nil
	}
	return Date{Unix: localUnix + int64(*offset), Offset: *offset}, nil
}

// ParseDate parses date against the ranked formats list (defaulting to
// DefaultDateFormats when formats is nil), validates the result fits
// cvsps's accepted range, and returns the (unixtime, offset) tuple.
func ParseDate(date string, formats []string) (Date, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return Date{}, nil
	}
	if formats == nil {
		formats = defaultDateFormats
	}

	// "unixtime offset" shorthand, as cvsps stores cache dates internally.
	if fields := strings.Fields(date); len(fields) == 2 {
		when, err1 := strconv.ParseInt(fields[0], 10, 64)
		off, err2 := strconv.Atoi(fields[1])
		if err1 == nil && err2 == nil {
			return validate(Date{Unix: when, Offset: off})
		}
	}

	var lastErr error
	for _, format := range formats {
		d, err := StrDate(date, format)
		if err == nil {
			return validate(d)
		}
		lastErr = err
	}
	return Date{}, abortf("invalid date: %q (%v)", date, lastErr)
}

func validate(d Date) (Date, error) {
	if d.Unix < minTimestamp || d.Unix > maxTimestamp {
		return Date{}, abortf("date exceeds 32 bits: %d", d.Unix)
	}
	if d.Offset < minTZOffset || d.Offset > maxTZOffset {
		return Date{}, abortf("impossible time zone offset: %d", d.Offset)
	}
	return d, nil
}

// DateStr renders date using format, a strftime-alike that additionally
// understands %1%2 (signed-hour, minute of the timezone offset) and %z,
// exactly as pycvsps's datestr() does - the two are interchangeable and
// both expand to the same "+HHMM"/"-HHMM" text.
func DateStr(date Date, format string) string {
	sign := byte('+')
	off := date.Offset
	if off > 0 {
		sign = '-'
	} else {
		off = -off
	}
	minutes := off / 60
	hh := minutes / 60
	mm := minutes % 60

	format = strings.ReplaceAll(format, "%z", "%1%2")
	format = strings.ReplaceAll(format, "%1", fmt.Sprintf("%c%02d", sign, hh))
	format = strings.ReplaceAll(format, "%2", fmt.Sprintf("%02d", mm))

	d := date.Unix - int64(date.Offset)
	if d > maxTimestamp {
		d = maxTimestamp
	} else if d < minTimestamp {
		d = minTimestamp
	}
	t := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(d) * time.Second)
	return strftime(t, format)
}

var strftimeDirectives = map[byte]string{
	'Y': "2006", 'y': "06", 'm': "01", 'd': "02",
	'H': "15", 'I': "03", 'M': "04", 'S': "05",
	'p': "PM", 'a': "Mon", 'A': "Monday", 'b': "Jan", 'B': "January",
}

// strftime is a minimal strftime, covering only the directives cvsps's
// own format strings use (see DateStr callers); unknown directives pass
// through literally.
func strftime(t time.Time, format string) string {
	var out strings.Builder
	i := 0
	for i < len(format) {
		c := format[i]
		if c == '%' && i+1 < len(format) {
			d := format[i+1]
			if d == '%' {
				out.WriteByte('%')
				i += 2
				continue
			}
			if layout, ok := strftimeDirectives[d]; ok {
				out.WriteString(t.Format(layout))
				i += 2
				continue
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String()
}
