package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"cadastro/internal/store"

	"github.com/spf13/cobra"
)

var (
	categoryDescription string

	articleTitle       string
	articleContentFile string
	articleAuthorEmail string
	articleCategory    string
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage blog categories",
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesAdd,
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories ordered by name",
	RunE:  runCategoriesList,
}

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Manage blog articles",
}

var articlesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a draft article",
	RunE:  runArticlesAdd,
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all articles ordered by title",
	RunE:  runArticlesList,
}

var articlesPublishCmd = &cobra.Command{
	Use:   "publish ID",
	Short: "Publish an article",
	Args:  cobra.ExactArgs(1),
	RunE:  articleStatusRunner(store.StatusPublished),
}

var articlesPauseCmd = &cobra.Command{
	Use:   "pause ID",
	Short: "Take a published article offline",
	Args:  cobra.ExactArgs(1),
	RunE:  articleStatusRunner(store.StatusPaused),
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticlesDelete,
}

func init() {
	categoriesAddCmd.Flags().StringVar(&categoryDescription, "description", "", "Category description")
	categoriesCmd.AddCommand(categoriesAddCmd, categoriesListCmd)

	articlesAddCmd.Flags().StringVar(&articleTitle, "title", "", "Article title (at least 3 words)")
	articlesAddCmd.Flags().StringVar(&articleContentFile, "content-file", "", "File holding the article body (at least 64 words)")
	articlesAddCmd.Flags().StringVar(&articleAuthorEmail, "author", "", "E-mail of a registered user")
	articlesAddCmd.Flags().StringVar(&articleCategory, "category", "", "Category name")
	for _, f := range []string{"title", "content-file", "author", "category"} {
		_ = articlesAddCmd.MarkFlagRequired(f)
	}
	articlesCmd.AddCommand(articlesAddCmd, articlesListCmd, articlesPublishCmd, articlesPauseCmd, articlesDeleteCmd)
}

func openStore() (*store.UserStore, error) {
	s, err := store.NewUserStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return s, nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	c := &store.Category{Name: args[0], Description: categoryDescription}
	if _, err := s.Categories().Insert(commandContext(cmd), c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "category %d created\n", c.ID)
	return nil
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.Categories().List(commandContext(cmd))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOME\tDESCRICAO")
	for _, c := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Description)
	}
	return w.Flush()
}

func runArticlesAdd(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	content, err := os.ReadFile(articleContentFile)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	author, err := s.GetByEmail(ctx, articleAuthorEmail)
	if err != nil {
		return fmt.Errorf("author %s: %w", articleAuthorEmail, err)
	}
	category, err := s.Categories().GetByName(ctx, articleCategory)
	if err != nil {
		return fmt.Errorf("category %s: %w", articleCategory, err)
	}

	a := &store.Article{
		Title:      articleTitle,
		Content:    string(content),
		AuthorID:   author.ID,
		CategoryID: category.ID,
	}
	if _, err := s.Articles().Insert(ctx, a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "article %d created as %s\n", a.ID, a.Status)
	return nil
}

func runArticlesList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.Articles().List(ctx)
	if err != nil {
		return err
	}
	total, err := s.Articles().Count(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITULO\tSTATUS\tCATEGORIA\tVISUALIZACOES")
	for _, a := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", a.ID, a.Title, a.Status, a.CategoryName, a.Views)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d articles\n", total)
	return nil
}

func articleStatusRunner(status store.ArticleStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article id %q", args[0])
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Articles().SetStatus(commandContext(cmd), id, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "article %d is now %s\n", id, status)
		return nil
	}
}

func runArticlesDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid article id %q", args[0])
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Articles().Delete(commandContext(cmd), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "article %d deleted\n", id)
	return nil
}
