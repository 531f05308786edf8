package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the observed record journal",
	Long: `The journal is written by listen and resolve when a data directory
is configured (--data-dir or storage.data_dir).`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal records",
	Long: `List journal records, sorted by name, type and data.

Examples:
  # Everything seen for a host
  burrow records list --data-dir /var/lib/burrow --name printer.local

  # Only records that have not been withdrawn
  burrow records list --data-dir /var/lib/burrow --active`,
	RunE: runRecordsList,
}

var recordsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records removed long ago",
	RunE:  runRecordsPrune,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete NAME TYPE DATA",
	Short: "Delete one record from the journal",
	Long: `Delete a single journal record. DATA is the record data exactly as
shown by records list.

Examples:
  # Forget a stale address
  burrow records delete printer.local A 192.168.1.20 --data-dir /var/lib/burrow`,
	Args: cobra.ExactArgs(3),
	RunE: runRecordsDelete,
}

func init() {
	recordsListCmd.Flags().String("name", "", "Only records with this name")
	recordsListCmd.Flags().String("type", "", "Only records of this type")
	recordsListCmd.Flags().Bool("active", false, "Hide removed records")

	recordsPruneCmd.Flags().Duration("older-than", 24*time.Hour, "Delete records removed before this age")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsPruneCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	rrtype, _ := cmd.Flags().GetString("type")
	active, _ := cmd.Flags().GetBool("active")

	store, err := openStore()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no data directory configured")
	}
	defer store.Close()

	records, err := store.ListRecords(types.RecordFilter{Name: name, Type: rrtype, ActiveOnly: active})
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tDATA\tSTATE\tFIRST SEEN\tLAST SEEN")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Name, rec.Type, rec.Data, rec.State,
			rec.FirstSeen.Format(time.RFC3339), rec.LastSeen.Format(time.RFC3339))
	}
	return w.Flush()
}

func runRecordsPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	store, err := openStore()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no data directory configured")
	}
	defer store.Close()

	n, err := store.Prune(time.Now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("failed to prune records: %w", err)
	}
	fmt.Printf("✓ Pruned %d records\n", n)
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no data directory configured")
	}
	defer store.Close()

	rec, err := deleteRecord(store, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("✓ Deleted %s %s %s (%s)\n", rec.Name, rec.Type, rec.Data, rec.State)
	return nil
}

// deleteRecord removes the record identified by name, type and data and
// returns what was stored
func deleteRecord(store storage.RecordStore, name, rrtype, data string) (*types.ObservedRecord, error) {
	t, err := parseType(rrtype)
	if err != nil {
		return nil, err
	}
	key := (&types.ObservedRecord{
		Name: dns.Fqdn(name),
		Type: dns.TypeToString[t],
		Data: data,
	}).Key()

	rec, err := store.GetRecord(key)
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", err)
	}
	if err := store.DeleteRecord(key); err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}
	return rec, nil
}
