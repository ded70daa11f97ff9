package sqlinline

const QProjectExists = `--sql 5c14da9f-c29b-4940-ab05-7cb7f54441ba
select exists(select 1 from projects where id = $1::text);
`
