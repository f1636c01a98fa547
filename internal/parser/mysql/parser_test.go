package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchemaTableColumnsIndicesAndFK(t *testing.T) {
	sql := "CREATE TABLE `orders` (" +
		"`id` int(11) NOT NULL AUTO_INCREMENT, " +
		"`customer_id` int(11) NOT NULL, " +
		"`status` varchar(20) NOT NULL DEFAULT 'new', " +
		"PRIMARY KEY (`id`), " +
		"KEY `idx_status` (`status`), " +
		"CONSTRAINT `fk_customer` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"

	p := New()
	schema, err := p.ParseSchema(sql)
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)

	tbl := schema.Tables[0]
	assert.Equal(t, "orders", tbl.Name)
	assert.Equal(t, "(`id`)", tbl.PrimaryKey)
	require.NotNil(t, tbl.Field("customer_id"))
	assert.Contains(t, tbl.Field("id").Def, "AUTO_INCREMENT")

	idx := tbl.Index("idx_status")
	require.NotNil(t, idx)
	assert.Contains(t, idx.Columns, "status")

	fk := tbl.ForeignKey("fk_customer")
	require.NotNil(t, fk)
	assert.Equal(t, []string{"customer_id"}, fk.Columns())
	assert.Contains(t, tbl.Options, "InnoDB")
}

func TestParseSchemaView(t *testing.T) {
	sql := "CREATE ALGORITHM=UNDEFINED DEFINER=CURRENT_USER SQL SECURITY DEFINER VIEW `orders_view` (`id`, `status`) AS SELECT `id`, `status` FROM `orders`;"

	p := New()
	schema, err := p.ParseSchema(sql)
	require.NoError(t, err)
	require.Len(t, schema.Views, 1)

	v := schema.Views[0]
	assert.Equal(t, "orders_view", v.Name)
	assert.Contains(t, v.Select, "FROM")
}

func TestParseSchemaInvalidSQLReturnsError(t *testing.T) {
	p := New()
	_, err := p.ParseSchema("CREATE TABLE (( not valid ;")
	assert.Error(t, err)
}
