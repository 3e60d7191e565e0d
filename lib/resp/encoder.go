package resp

import "strconv"

// AppendCommand appends the RESP multi-bulk encoding of a command and its
// arguments to dst and returns the extended buffer. The result is the exact
// byte sequence expected by Conn.Send; the connection core itself performs
// no encoding.
//
//	AppendCommand(nil, "SET", "k", "v")
//	=> "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
func AppendCommand(dst []byte, args ...string) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, '\r', '\n')

	for _, arg := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, arg...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}
