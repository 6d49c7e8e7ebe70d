package mysql

import (
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
)

const errDupEntry = 1062

func isDuplicateKey(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
