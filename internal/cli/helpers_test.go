package cli

import (
	"bufio"
	"strconv"
	"strings"
)

func bufioReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
